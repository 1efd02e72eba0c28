package internal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LewisWJackson/RedDayDCAAlerter/config"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/services/trigger"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/storage/triggerstate"
)

type dailyCandle struct {
	close decimal.Decimal
	date  string
}

type fakeSource struct {
	price    decimal.Decimal
	priceErr error
	// closes is keyed by daysAgo.
	closes    map[int]dailyCandle
	closesErr error
}

func (f *fakeSource) CurrentPrice(context.Context) (decimal.Decimal, error) {
	return f.price, f.priceErr
}

func (f *fakeSource) DailyClose(_ context.Context, daysAgo int) (decimal.Decimal, string, error) {
	if f.closesErr != nil {
		return decimal.Decimal{}, "", f.closesErr
	}
	candle, ok := f.closes[daysAgo]
	if !ok {
		return decimal.Decimal{}, "", domain.ErrTransientFetch
	}
	return candle.close, candle.date, nil
}

type recordingNotifier struct {
	notified    []domain.TriggerRecord
	completions int
}

func (n *recordingNotifier) Notify(_ context.Context, record domain.TriggerRecord, _, _ int) error {
	n.notified = append(n.notified, record)
	return nil
}

func (n *recordingNotifier) NotifyCompletion(context.Context, []domain.TriggerRecord) error {
	n.completions++
	return nil
}

func testAlerterConfig(t *testing.T, stateDir string, maxTriggers int) config.Config {
	t.Helper()
	thresholds, err := domain.NewThresholds(
		decimal.RequireFromString("-4.7"),
		decimal.RequireFromString("-3.3"),
		maxTriggers,
	)
	require.NoError(t, err)

	return config.Config{
		Pair:              domain.Pair{From: "BTC", To: "USDT"},
		Thresholds:        thresholds,
		PollPriceInterval: time.Minute,
		DailyCloseCron:    "5 0 * * *",
		RequestTimeout:    10 * time.Second,
		StateDir:          stateDir,
	}
}

func newTestAlerter(t *testing.T, source *fakeSource, stateDir string, maxTriggers int) (*Alerter, *recordingNotifier) {
	t.Helper()
	cfg := testAlerterConfig(t, stateDir, maxTriggers)

	store, err := triggerstate.NewWALStore(stateDir, cfg.Pair)
	require.NoError(t, err)

	n := &recordingNotifier{}
	executor := trigger.NewExecutor(zap.NewNop(), store, n, maxTriggers)

	a, err := NewAlerter(zap.NewNop(), cfg, source, store, executor)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { a.Close() })

	return a, n
}

func dippingSource() *fakeSource {
	return &fakeSource{
		price: decimal.NewFromInt(95000), // -5% vs reference
		closes: map[int]dailyCandle{
			1: {close: decimal.NewFromInt(100000), date: "2026-02-02"},
			2: {close: decimal.NewFromInt(101000), date: "2026-02-01"},
		},
	}
}

func TestIntradayCycleFiresOnceAndDedupsSameDay(t *testing.T) {
	source := dippingSource()
	a, n := newTestAlerter(t, source, t.TempDir(), 15)

	record := a.CheckIntraday(context.Background())
	require.NotNil(t, record)
	require.Equal(t, 1, record.SequenceNumber)
	require.Equal(t, domain.ClassificationIntradayDip, record.Classification)
	require.Len(t, n.notified, 1)

	// identical inputs, same date: no second record.
	record = a.CheckIntraday(context.Background())
	require.Nil(t, record)
	require.Len(t, n.notified, 1)

	state := a.Snapshot()
	require.Equal(t, 1, state.TriggerCount)
	require.Len(t, state.TriggerHistory, 1)
}

func TestIntradayCycleNoFireAboveThreshold(t *testing.T) {
	source := dippingSource()
	source.price = decimal.NewFromInt(96000) // -4%
	a, n := newTestAlerter(t, source, t.TempDir(), 15)

	require.Nil(t, a.CheckIntraday(context.Background()))
	require.Empty(t, n.notified)
}

func TestTransientFetchErrorAbortsCycleOnly(t *testing.T) {
	source := dippingSource()
	source.priceErr = domain.ErrTransientFetch
	a, n := newTestAlerter(t, source, t.TempDir(), 15)

	require.Nil(t, a.CheckIntraday(context.Background()))
	require.Empty(t, n.notified)

	// source recovers, next tick fires.
	source.priceErr = nil
	require.NotNil(t, a.CheckIntraday(context.Background()))
}

func TestDailyCloseCycle(t *testing.T) {
	source := dippingSource()
	source.price = decimal.NewFromInt(99000) // intraday never fires at -1%
	a, _ := newTestAlerter(t, source, t.TempDir(), 15)

	// candle has not rolled over yet: latest completed close is still two
	// days old, so the check skips.
	source.closes = map[int]dailyCandle{
		1: {close: decimal.NewFromInt(100000), date: "2026-02-01"},
		2: {close: decimal.NewFromInt(100000), date: "2026-01-31"},
	}
	require.Nil(t, a.CheckDailyClose(context.Background()))

	// yesterday closed at -3.5% vs the day before.
	source.closes = map[int]dailyCandle{
		1: {close: decimal.NewFromInt(96500), date: "2026-02-02"},
		2: {close: decimal.NewFromInt(100000), date: "2026-02-01"},
	}
	record := a.CheckDailyClose(context.Background())
	require.NotNil(t, record)
	require.Equal(t, domain.ClassificationCloseToClose, record.Classification)
}

func TestStateSurvivesRestartWithoutRefire(t *testing.T) {
	dir := t.TempDir()
	source := dippingSource()

	a, _ := newTestAlerter(t, source, dir, 15)
	require.NotNil(t, a.CheckIntraday(context.Background()))
	require.NoError(t, a.Close())

	// simulate restart: new store, new alerter, same state dir.
	restarted, n := newTestAlerter(t, source, dir, 15)
	state := restarted.Snapshot()
	require.Equal(t, 1, state.TriggerCount, "committed trigger survives the restart")

	require.Nil(t, restarted.CheckIntraday(context.Background()), "no duplicate fire for the same date")
	require.Empty(t, n.notified)
}

func TestManualTriggerRoutesThroughExecutor(t *testing.T) {
	source := dippingSource()
	source.price = decimal.NewFromInt(101000) // above reference, no automatic fire
	a, n := newTestAlerter(t, source, t.TempDir(), 15)

	record, reason, err := a.TriggerManual(context.Background())
	require.NoError(t, err)
	require.Empty(t, reason)
	require.NotNil(t, record)
	require.Equal(t, domain.ClassificationManual, record.Classification)
	require.Len(t, n.notified, 1)

	// same day: dedup blocks the second manual trigger.
	record, reason, err = a.TriggerManual(context.Background())
	require.NoError(t, err)
	require.Nil(t, record)
	require.Equal(t, domain.ReasonAlreadyFiredToday, reason)
}

func TestCompletionShutsDownMonitoring(t *testing.T) {
	source := dippingSource()
	a, n := newTestAlerter(t, source, t.TempDir(), 1)

	record := a.CheckIntraday(context.Background())
	require.NotNil(t, record)
	require.True(t, a.Complete())
	require.Equal(t, 1, n.completions)

	// Run returns immediately once terminal.
	require.NoError(t, a.Run(context.Background()))
}
