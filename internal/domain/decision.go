package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NoFireReason explains why an evaluation did not fire.
type NoFireReason string

const (
	ReasonComplete          NoFireReason = "complete"
	ReasonAlreadyFiredToday NoFireReason = "already_fired_today"
	ReasonMissingReference  NoFireReason = "missing_reference"
	ReasonInvalidInput      NoFireReason = "invalid_input"
	ReasonAboveThreshold    NoFireReason = "above_threshold"
)

// Decision is the outcome of one trigger evaluation.
type Decision struct {
	Fire           bool
	Reason         NoFireReason
	Classification Classification
	Date           string
	ObservedPrice  decimal.Decimal
	ReferenceClose decimal.Decimal
	DropPercent    decimal.Decimal
}

// Fired builds a positive decision.
func Fired(class Classification, date string, price, reference, drop decimal.Decimal) Decision {
	return Decision{
		Fire:           true,
		Classification: class,
		Date:           date,
		ObservedPrice:  price,
		ReferenceClose: reference,
		DropPercent:    drop,
	}
}

// NoFire builds a negative decision with a reason.
func NoFire(reason NoFireReason) Decision {
	return Decision{Fire: false, Reason: reason}
}

// Thresholds encapsulates the trigger decision parameters.
type Thresholds struct {
	// IntradayPercent is the live-price drop that fires, e.g. -4.7.
	IntradayPercent decimal.Decimal
	// ClosePercent is the close-to-close drop that fires, e.g. -3.3.
	ClosePercent decimal.Decimal
	// MaxTriggers bounds the whole sequence.
	MaxTriggers int
}

// NewThresholds creates validated thresholds. Both percentages must be
// negative: a trigger is always a drop.
func NewThresholds(intradayPercent, closePercent decimal.Decimal, maxTriggers int) (Thresholds, error) {
	if !intradayPercent.IsNegative() {
		return Thresholds{}, fmt.Errorf("intraday threshold must be negative, got %s", intradayPercent.String())
	}
	if !closePercent.IsNegative() {
		return Thresholds{}, fmt.Errorf("close-to-close threshold must be negative, got %s", closePercent.String())
	}
	if maxTriggers < 1 {
		return Thresholds{}, fmt.Errorf("maxTriggers must be >= 1, got %d", maxTriggers)
	}

	return Thresholds{
		IntradayPercent: intradayPercent,
		ClosePercent:    closePercent,
		MaxTriggers:     maxTriggers,
	}, nil
}
