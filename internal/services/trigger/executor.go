package trigger

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

type stateStore interface {
	Save(state *domain.TriggerState) error
}

type notifier interface {
	// Notify delivers the trigger message. Called only after the state write
	// has been committed.
	Notify(ctx context.Context, record domain.TriggerRecord, completed, max int) error
	// NotifyCompletion delivers the one-time summary when the sequence ends.
	NotifyCompletion(ctx context.Context, history []domain.TriggerRecord) error
}

// Executor applies the side effects of a fire decision. State is persisted
// before any notification is attempted: a crash between the two leaves the
// trigger counted and never refired, at the cost of a possibly-missed
// message (operator re-send covers that).
type Executor struct {
	store       stateStore
	notifier    notifier
	maxTriggers int
	l           *zap.Logger

	// now is overridable in tests.
	now func() time.Time
}

// NewExecutor returns a configured executor.
func NewExecutor(l *zap.Logger, store stateStore, notifier notifier, maxTriggers int) *Executor {
	return &Executor{
		store:       store,
		notifier:    notifier,
		maxTriggers: maxTriggers,
		l:           l,
		now:         time.Now,
	}
}

// Execute mutates state for a fire decision, persists it and then notifies.
// On persistence failure the state is rolled back to its prior snapshot and
// the fire is not committed. Notification failure after a committed write is
// logged and returned wrapped in domain.ErrNotification; the caller must not
// treat it as a failed trigger.
func (x *Executor) Execute(ctx context.Context, state *domain.TriggerState, decision domain.Decision) (*domain.TriggerRecord, error) {
	if !decision.Fire {
		return nil, errors.Errorf("executor invoked with a no-fire decision (reason %s)", decision.Reason)
	}
	if state.IsComplete(x.maxTriggers) {
		// re-running when already complete must not mutate anything.
		return nil, errors.Errorf("trigger sequence already complete at %d", state.TriggerCount)
	}

	snapshot := state.Clone()

	record := domain.TriggerRecord{
		SequenceNumber: state.TriggerCount + 1,
		FiredAt:        x.now().UTC(),
		FiredDate:      decision.Date,
		ObservedPrice:  decision.ObservedPrice,
		ReferenceClose: decision.ReferenceClose,
		DropPercent:    decision.DropPercent,
		Classification: decision.Classification,
	}

	if err := state.RecordFire(record); err != nil {
		return nil, errors.Wrap(err, "apply fire to state")
	}

	if err := x.store.Save(state); err != nil {
		state.Restore(snapshot)
		return nil, errors.Wrapf(domain.ErrPersistence, "persist trigger %d: %v", record.SequenceNumber, err)
	}

	x.l.Info("trigger fired",
		zap.Int("trigger_number", record.SequenceNumber),
		zap.Int("max_triggers", x.maxTriggers),
		zap.String("classification", string(record.Classification)),
		zap.String("price", record.ObservedPrice.String()),
		zap.String("reference_close", record.ReferenceClose.String()),
		zap.String("drop_percent", record.DropPercent.String()))

	var notifyErr error
	if err := x.notifier.Notify(ctx, record, state.TriggerCount, x.maxTriggers); err != nil {
		notifyErr = errors.Wrapf(domain.ErrNotification, "trigger %d: %v", record.SequenceNumber, err)
		x.l.Error("trigger notification failed, state stands",
			zap.Int("trigger_number", record.SequenceNumber),
			zap.Error(err))
	}

	if state.IsComplete(x.maxTriggers) {
		x.l.Info("all triggers complete", zap.Int("max_triggers", x.maxTriggers))
		if err := x.notifier.NotifyCompletion(ctx, state.TriggerHistory); err != nil {
			notifyErr = errors.Wrapf(domain.ErrNotification, "completion summary: %v", err)
			x.l.Error("completion notification failed, state stands", zap.Error(err))
		}
	}

	return &record, notifyErr
}
