// Package domain defines core data structures used throughout the alerter.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const percentageMultiplier = 100

// DateLayout is the UTC calendar date format used for dedup and reference tracking.
const DateLayout = "2006-01-02"

// Classification tells which check produced a trigger.
type Classification string

const (
	ClassificationIntradayDip  Classification = "intraday_dip"
	ClassificationCloseToClose Classification = "close_to_close"
	ClassificationManual       Classification = "manual"
)

// TriggerRecord is one fired trigger. Immutable once appended to history.
type TriggerRecord struct {
	SequenceNumber int             `json:"sequence_number"`
	FiredAt        time.Time       `json:"fired_at"`
	FiredDate      string          `json:"fired_date"`
	ObservedPrice  decimal.Decimal `json:"observed_price"`
	ReferenceClose decimal.Decimal `json:"reference_close"`
	DropPercent    decimal.Decimal `json:"drop_percent"`
	Classification Classification  `json:"classification"`
}

// TriggerState is the persisted progress of the alert sequence.
type TriggerState struct {
	TriggerCount       int             `json:"trigger_count"`
	LastTriggerDate    string          `json:"last_trigger_date,omitempty"`
	ReferenceClose     decimal.Decimal `json:"reference_close"`
	ReferenceCloseDate string          `json:"reference_close_date,omitempty"`
	TriggerHistory     []TriggerRecord `json:"trigger_history"`
}

// NewTriggerState creates an empty state with initialized collections.
func NewTriggerState() *TriggerState {
	return &TriggerState{
		ReferenceClose: decimal.Zero,
		TriggerHistory: make([]TriggerRecord, 0),
	}
}

// Normalize back-fills fields that may be absent in older persisted snapshots.
func (s *TriggerState) Normalize() {
	if s.TriggerHistory == nil {
		s.TriggerHistory = make([]TriggerRecord, 0)
	}
}

// IsComplete reports whether the trigger sequence reached its maximum.
func (s *TriggerState) IsComplete(maxTriggers int) bool {
	return s.TriggerCount >= maxTriggers
}

// FiredOn reports whether a trigger already fired on the given UTC date.
func (s *TriggerState) FiredOn(date string) bool {
	return s.LastTriggerDate != "" && s.LastTriggerDate == date
}

// HasReferenceClose reports whether a usable baseline close is stored.
func (s *TriggerState) HasReferenceClose() bool {
	return s.ReferenceCloseDate != "" && s.ReferenceClose.IsPositive()
}

// Clone returns a deep copy used as a rollback snapshot before a fire is applied.
func (s *TriggerState) Clone() *TriggerState {
	history := make([]TriggerRecord, len(s.TriggerHistory))
	copy(history, s.TriggerHistory)

	return &TriggerState{
		TriggerCount:       s.TriggerCount,
		LastTriggerDate:    s.LastTriggerDate,
		ReferenceClose:     s.ReferenceClose,
		ReferenceCloseDate: s.ReferenceCloseDate,
		TriggerHistory:     history,
	}
}

// Restore overwrites the state with the snapshot contents.
func (s *TriggerState) Restore(snapshot *TriggerState) {
	s.TriggerCount = snapshot.TriggerCount
	s.LastTriggerDate = snapshot.LastTriggerDate
	s.ReferenceClose = snapshot.ReferenceClose
	s.ReferenceCloseDate = snapshot.ReferenceCloseDate
	s.TriggerHistory = snapshot.TriggerHistory
}

// RecordFire applies one fired trigger to the state: count, history and the
// same-day dedup marker move together.
func (s *TriggerState) RecordFire(record TriggerRecord) error {
	if record.SequenceNumber != s.TriggerCount+1 {
		return fmt.Errorf("sequence number %d does not continue count %d", record.SequenceNumber, s.TriggerCount)
	}
	if record.FiredDate == "" {
		return fmt.Errorf("fired date is required")
	}
	if s.FiredOn(record.FiredDate) {
		return fmt.Errorf("trigger already recorded for %s", record.FiredDate)
	}
	if !record.ObservedPrice.IsPositive() {
		return fmt.Errorf("observed price must be positive, got %s", record.ObservedPrice.String())
	}

	s.TriggerCount++
	s.TriggerHistory = append(s.TriggerHistory, record)
	s.LastTriggerDate = record.FiredDate

	return nil
}

// AdoptReferenceClose stores a newer baseline close. Returns true when the
// state changed. This is the only mutation allowed outside a full fire.
func (s *TriggerState) AdoptReferenceClose(close decimal.Decimal, date string) bool {
	if date == "" || !close.IsPositive() {
		return false
	}
	if s.ReferenceCloseDate == date {
		return false
	}

	s.ReferenceClose = close
	s.ReferenceCloseDate = date
	return true
}

// DropPercent returns the signed percentage distance of price from reference.
// Negative means price is below the reference close.
func DropPercent(price, reference decimal.Decimal) decimal.Decimal {
	if reference.IsZero() {
		return decimal.Zero
	}
	return price.Sub(reference).Div(reference).Mul(decimal.NewFromInt(percentageMultiplier))
}
