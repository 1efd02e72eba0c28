// Package trigger implements the trigger state machine: the pure evaluation
// of price observations against persisted progress, and the execution of the
// side effects when a trigger fires.
package trigger

import (
	"github.com/shopspring/decimal"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

// Evaluator decides whether an observation constitutes a new trigger.
// It is pure: it never mutates state and never performs I/O.
type Evaluator struct {
	thresholds domain.Thresholds
}

// NewEvaluator returns an evaluator with the given thresholds.
func NewEvaluator(thresholds domain.Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// EvaluateIntraday checks the live price against yesterday's close using the
// intraday threshold.
func (e *Evaluator) EvaluateIntraday(state *domain.TriggerState, price decimal.Decimal, today string) domain.Decision {
	return e.evaluate(state, price, state.ReferenceClose, state.HasReferenceClose(), today,
		e.thresholds.IntradayPercent, domain.ClassificationIntradayDip)
}

// EvaluateClose checks a completed daily close against the close before it.
// Both closes are passed explicitly so the comparison never depends on when
// the stored intraday baseline was last refreshed.
func (e *Evaluator) EvaluateClose(state *domain.TriggerState, latestClose, priorClose decimal.Decimal, today string) domain.Decision {
	return e.evaluate(state, latestClose, priorClose, priorClose.IsPositive(), today,
		e.thresholds.ClosePercent, domain.ClassificationCloseToClose)
}

// EvaluateManual is the operator-forced path: it bypasses the threshold
// comparison but still honors the terminal, dedup and input guards.
func (e *Evaluator) EvaluateManual(state *domain.TriggerState, price decimal.Decimal, today string) domain.Decision {
	if state.IsComplete(e.thresholds.MaxTriggers) {
		return domain.NoFire(domain.ReasonComplete)
	}
	if state.FiredOn(today) {
		return domain.NoFire(domain.ReasonAlreadyFiredToday)
	}
	if !validPrice(price) {
		return domain.NoFire(domain.ReasonInvalidInput)
	}
	if !state.HasReferenceClose() {
		return domain.NoFire(domain.ReasonMissingReference)
	}

	drop := domain.DropPercent(price, state.ReferenceClose)
	return domain.Fired(domain.ClassificationManual, today, price, state.ReferenceClose, drop)
}

// evaluate applies the guards in their fixed order: terminal, same-day dedup,
// input validation, reference availability, threshold comparison (inclusive).
func (e *Evaluator) evaluate(state *domain.TriggerState, price, reference decimal.Decimal, hasReference bool,
	today string, threshold decimal.Decimal, class domain.Classification) domain.Decision {

	if state.IsComplete(e.thresholds.MaxTriggers) {
		return domain.NoFire(domain.ReasonComplete)
	}
	if state.FiredOn(today) {
		return domain.NoFire(domain.ReasonAlreadyFiredToday)
	}
	if !validPrice(price) {
		return domain.NoFire(domain.ReasonInvalidInput)
	}
	if !hasReference {
		return domain.NoFire(domain.ReasonMissingReference)
	}

	drop := domain.DropPercent(price, reference)
	if drop.GreaterThan(threshold) {
		return domain.Decision{
			Fire:           false,
			Reason:         domain.ReasonAboveThreshold,
			Date:           today,
			ObservedPrice:  price,
			ReferenceClose: reference,
			DropPercent:    drop,
		}
	}

	return domain.Fired(class, today, price, reference, drop)
}

func validPrice(price decimal.Decimal) bool {
	return price.IsPositive()
}
