// Package internal wires the trigger state machine to its collaborators and
// runs the evaluation cycles.
package internal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LewisWJackson/RedDayDCAAlerter/config"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/services/pricer"
	"github.com/LewisWJackson/RedDayDCAAlerter/internal/services/trigger"
)

// StateStore persists the trigger state as a single atomic unit.
type StateStore interface {
	Load() (*domain.TriggerState, error)
	Save(state *domain.TriggerState) error
	Close() error
}

// Alerter runs the evaluation cycles: periodic intraday checks, the daily
// close-to-close checkpoint and operator-forced triggers. Cycles are
// serialized; a tick arriving while a cycle is still running is skipped,
// never queued.
type Alerter struct {
	cfg       config.Config
	source    pricer.PriceSource
	store     StateStore
	evaluator *trigger.Evaluator
	executor  *trigger.Executor
	l         *zap.Logger

	// mu guards state and serializes cycles.
	mu    sync.Mutex
	state *domain.TriggerState

	// now is overridable in tests.
	now func() time.Time
}

// NewAlerter loads the persisted state and assembles the alerter.
func NewAlerter(l *zap.Logger, cfg config.Config, source pricer.PriceSource, store StateStore, executor *trigger.Executor) (*Alerter, error) {
	state, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load trigger state")
	}

	l.Info("trigger state loaded",
		zap.Int("trigger_count", state.TriggerCount),
		zap.Int("max_triggers", cfg.Thresholds.MaxTriggers),
		zap.String("last_trigger_date", state.LastTriggerDate),
		zap.String("reference_close_date", state.ReferenceCloseDate))

	return &Alerter{
		cfg:       cfg,
		source:    source,
		store:     store,
		evaluator: trigger.NewEvaluator(cfg.Thresholds),
		executor:  executor,
		l:         l,
		state:     state,
		now:       time.Now,
	}, nil
}

// Run executes the monitoring loop until the context is cancelled or the
// trigger sequence completes.
func (a *Alerter) Run(ctx context.Context) error {
	if a.Complete() {
		a.l.Info("all triggers already completed, nothing to monitor",
			zap.Int("max_triggers", a.cfg.Thresholds.MaxTriggers))
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(a.cfg.DailyCloseCron, func() {
		a.CheckDailyClose(ctx)
	}); err != nil {
		return errors.Wrapf(err, "register daily close check %q", a.cfg.DailyCloseCron)
	}
	c.Start()
	defer c.Stop()

	a.l.Info("monitoring started",
		zap.String("pair", a.cfg.Pair.String()),
		zap.Duration("poll_interval", a.cfg.PollPriceInterval),
		zap.String("daily_close_cron", a.cfg.DailyCloseCron))

	// initial check so a restart does not wait a full interval.
	a.CheckIntraday(ctx)

	ticker := time.NewTicker(a.cfg.PollPriceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.l.Info("context done, stopping monitoring loop")
			return ctx.Err()
		case <-ticker.C:
			a.CheckIntraday(ctx)
			if a.Complete() {
				a.l.Info("trigger sequence complete, shutting down")
				return nil
			}
		}
	}
}

// CheckIntraday runs one intraday evaluation cycle. Returns the fired record,
// or nil when nothing fired. A cycle already in flight makes this a no-op.
func (a *Alerter) CheckIntraday(ctx context.Context) *domain.TriggerRecord {
	if !a.mu.TryLock() {
		a.l.Debug("cycle still in flight, skipping intraday tick")
		return nil
	}
	defer a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	if a.state.IsComplete(a.cfg.Thresholds.MaxTriggers) {
		return nil
	}

	a.refreshReferenceClose(ctx)

	price, err := a.source.CurrentPrice(ctx)
	if err != nil {
		a.logCycleError("intraday price fetch failed", err)
		return nil
	}

	today := a.today()
	decision := a.evaluator.EvaluateIntraday(a.state, price, today)
	a.logDecision("intraday", decision, price)
	if !decision.Fire {
		return nil
	}

	return a.execute(ctx, decision)
}

// CheckDailyClose runs the close-to-close checkpoint. It evaluates only once
// the daily candle has fully closed.
func (a *Alerter) CheckDailyClose(ctx context.Context) *domain.TriggerRecord {
	if !a.mu.TryLock() {
		a.l.Debug("cycle still in flight, skipping daily close check")
		return nil
	}
	defer a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	if a.state.IsComplete(a.cfg.Thresholds.MaxTriggers) {
		return nil
	}

	a.refreshReferenceClose(ctx)

	latest, latestDate, err := a.source.DailyClose(ctx, 1)
	if err != nil {
		a.logCycleError("daily close fetch failed", err)
		return nil
	}

	yesterday := a.now().UTC().AddDate(0, 0, -1).Format(domain.DateLayout)
	if latestDate != yesterday {
		a.l.Debug("daily candle not rolled over yet, skipping close-to-close check",
			zap.String("latest_close_date", latestDate))
		return nil
	}

	prior, _, err := a.source.DailyClose(ctx, 2)
	if err != nil {
		a.logCycleError("prior close fetch failed", err)
		return nil
	}

	today := a.today()
	decision := a.evaluator.EvaluateClose(a.state, latest, prior, today)
	a.logDecision("close_to_close", decision, latest)
	if !decision.Fire {
		return nil
	}

	return a.execute(ctx, decision)
}

// TriggerManual is the operator-forced path. It waits for any in-flight cycle
// and routes through the executor so all invariants hold. A blocked trigger
// returns the no-fire reason with a nil record.
func (a *Alerter) TriggerManual(ctx context.Context) (*domain.TriggerRecord, domain.NoFireReason, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	a.refreshReferenceClose(ctx)

	price, err := a.source.CurrentPrice(ctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "fetch price for manual trigger")
	}

	decision := a.evaluator.EvaluateManual(a.state, price, a.today())
	a.logDecision("manual", decision, price)
	if !decision.Fire {
		return nil, decision.Reason, nil
	}

	record, err := a.executor.Execute(ctx, a.state, decision)
	if err != nil && !errors.Is(err, domain.ErrNotification) {
		return nil, "", err
	}
	return record, "", nil
}

// Snapshot returns a copy of the current state for the operator surface.
func (a *Alerter) Snapshot() domain.TriggerState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.state.Clone()
}

// MaxTriggers exposes the configured sequence bound.
func (a *Alerter) MaxTriggers() int {
	return a.cfg.Thresholds.MaxTriggers
}

// Complete reports whether the trigger sequence is terminal.
func (a *Alerter) Complete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.IsComplete(a.cfg.Thresholds.MaxTriggers)
}

// Close releases the state store.
func (a *Alerter) Close() error {
	return a.store.Close()
}

// refreshReferenceClose adopts a newer-dated daily close as the drop
// baseline. This is the single state mutation allowed outside a full fire.
// A fetch or save failure keeps the previously stored baseline.
func (a *Alerter) refreshReferenceClose(ctx context.Context) {
	close, date, err := a.source.DailyClose(ctx, 1)
	if err != nil {
		a.logCycleError("reference close fetch failed", err)
		return
	}

	if !a.state.AdoptReferenceClose(close, date) {
		return
	}

	if err := a.store.Save(a.state); err != nil {
		a.l.Warn("failed to persist refreshed reference close", zap.Error(err))
		return
	}

	a.l.Info("reference close updated",
		zap.String("reference_close", close.String()),
		zap.String("reference_close_date", date))
}

func (a *Alerter) execute(ctx context.Context, decision domain.Decision) *domain.TriggerRecord {
	record, err := a.executor.Execute(ctx, a.state, decision)
	if err != nil {
		if errors.Is(err, domain.ErrNotification) {
			// state stands; the operator re-sends manually if needed.
			return record
		}
		a.logCycleError("trigger execution failed", err)
		return nil
	}
	return record
}

func (a *Alerter) today() string {
	return a.now().UTC().Format(domain.DateLayout)
}

func (a *Alerter) logDecision(check string, decision domain.Decision, price decimal.Decimal) {
	fields := []zap.Field{
		zap.String("check", check),
		zap.String("pair", a.cfg.Pair.String()),
		zap.String("price", price.String()),
		zap.String("reference_close", a.state.ReferenceClose.String()),
		zap.String("last_trigger_date", a.state.LastTriggerDate),
		zap.Int("trigger_count", a.state.TriggerCount),
	}

	if decision.Fire {
		fields = append(fields,
			zap.String("drop_percent", decision.DropPercent.String()),
			zap.String("classification", string(decision.Classification)))
		a.l.Info("trigger condition met", fields...)
		return
	}

	fields = append(fields, zap.String("reason", string(decision.Reason)))
	if decision.Reason == domain.ReasonAboveThreshold {
		fields = append(fields, zap.String("drop_percent", decision.DropPercent.String()))
		a.l.Info("no trigger", fields...)
		return
	}
	a.l.Debug("no trigger", fields...)
}

func (a *Alerter) logCycleError(msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrTransientFetch):
		a.l.Warn(msg, zap.Error(err), zap.String("handling", "retry next tick"))
	case errors.Is(err, domain.ErrInvalidInput):
		a.l.Error(msg, zap.Error(err), zap.String("handling", "cycle aborted"))
	case errors.Is(err, domain.ErrPersistence):
		a.l.Error(msg, zap.Error(err), zap.String("handling", "fire discarded, retry next tick"))
	default:
		a.l.Error(msg, zap.Error(err))
	}
}
