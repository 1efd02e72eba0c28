// Package triggerstate persists the alerter's trigger progress in a WAL.
// Every save appends a full JSON snapshot; load replays the log and keeps the
// last snapshot, so a reader never observes a half-written state.
package triggerstate

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

const (
	stateKeyPrefix    = "trigger_state_"
	segmentThreshold  = 1000
	maxSegments       = 100
	walDirPermissions = 0o755
)

// WALStore stores the TriggerState as a single atomic unit in a gowal log.
// The WAL runs in sync-disk mode; an appended snapshot is durable before
// Save returns. The mutex also guards against concurrent writers inside the
// process; cross-process exclusivity comes from gowal's directory lock.
type WALStore struct {
	wal      *gowal.Wal
	stateKey string
	mu       sync.Mutex
}

// NewWALStore opens (or creates) the WAL under dir for the given pair.
func NewWALStore(dir string, pair domain.Pair) (*WALStore, error) {
	if err := os.MkdirAll(dir, walDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "ensure state directory %s", dir)
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "state_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init trigger state WAL")
	}

	return &WALStore{
		wal:      wal,
		stateKey: fmt.Sprintf("%s%s", stateKeyPrefix, pair.String()),
	}, nil
}

// Load replays the WAL and returns the most recent snapshot, or a zero-valued
// state when none was ever written. Missing fields in older snapshots are
// back-filled with defaults rather than failing the load.
func (s *WALStore) Load() (*domain.TriggerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := domain.NewTriggerState()

	var found []byte
	for msg := range s.wal.Iterator() {
		if msg.Key == s.stateKey {
			found = msg.Value
		}
	}
	if found == nil {
		return state, nil
	}

	if err := json.Unmarshal(found, state); err != nil {
		return nil, errors.Wrap(err, "decode trigger state snapshot")
	}
	state.Normalize()

	return state, nil
}

// Save appends a full snapshot of the state to the WAL.
func (s *WALStore) Save(state *domain.TriggerState) error {
	if s == nil || s.wal == nil {
		return errors.New("trigger state store is not initialized")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal trigger state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, s.stateKey, payload)
}

// Close closes the underlying WAL. Safe to call more than once.
func (s *WALStore) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return nil
	}
	wal := s.wal
	s.wal = nil

	return wal.Close()
}
