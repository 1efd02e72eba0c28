package triggerstate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

var testPair = domain.Pair{From: "BTC", To: "USDT"}

func newTestStore(t *testing.T, dir string) *WALStore {
	t.Helper()
	store, err := NewWALStore(dir, testPair)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadEmptyReturnsZeroState(t *testing.T) {
	store := newTestStore(t, t.TempDir())

	state, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 0, state.TriggerCount)
	require.Empty(t, state.LastTriggerDate)
	require.NotNil(t, state.TriggerHistory)
	require.Empty(t, state.TriggerHistory)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)

	state := domain.NewTriggerState()
	state.AdoptReferenceClose(decimal.NewFromInt(100000), "2026-02-02")
	require.NoError(t, state.RecordFire(domain.TriggerRecord{
		SequenceNumber: 1,
		FiredAt:        time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC),
		FiredDate:      "2026-02-03",
		ObservedPrice:  decimal.NewFromInt(95000),
		ReferenceClose: decimal.NewFromInt(100000),
		DropPercent:    decimal.NewFromInt(-5),
		Classification: domain.ClassificationIntradayDip,
	}))

	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 1, loaded.TriggerCount)
	require.Equal(t, "2026-02-03", loaded.LastTriggerDate)
	require.Equal(t, "2026-02-02", loaded.ReferenceCloseDate)
	require.Len(t, loaded.TriggerHistory, 1)
	require.Equal(t, domain.ClassificationIntradayDip, loaded.TriggerHistory[0].Classification)
	require.True(t, loaded.TriggerHistory[0].ObservedPrice.Equal(decimal.NewFromInt(95000)))
}

func TestLastSnapshotWins(t *testing.T) {
	store := newTestStore(t, t.TempDir())

	state := domain.NewTriggerState()
	for i := 1; i <= 3; i++ {
		require.NoError(t, state.RecordFire(domain.TriggerRecord{
			SequenceNumber: i,
			FiredDate:      time.Date(2026, 2, i, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout),
			ObservedPrice:  decimal.NewFromInt(95000),
		}))
		require.NoError(t, store.Save(state))
	}

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 3, loaded.TriggerCount)
	require.Len(t, loaded.TriggerHistory, 3)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir, testPair)
	require.NoError(t, err)

	state := domain.NewTriggerState()
	require.NoError(t, state.RecordFire(domain.TriggerRecord{
		SequenceNumber: 1,
		FiredDate:      "2026-02-03",
		ObservedPrice:  decimal.NewFromInt(95000),
	}))
	require.NoError(t, store.Save(state))
	require.NoError(t, store.Close())

	reopened := newTestStore(t, dir)
	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, 1, loaded.TriggerCount, "state must survive process restarts")
	require.Equal(t, "2026-02-03", loaded.LastTriggerDate)
}
