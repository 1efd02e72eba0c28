package domain

import "github.com/pkg/errors"

// Cycle error taxonomy. Callers classify with errors.Is at the cycle boundary.
var (
	// ErrTransientFetch marks a price source failure; retried on the next tick.
	ErrTransientFetch = errors.New("transient price fetch failure")
	// ErrInvalidInput marks malformed price data; the cycle is aborted.
	ErrInvalidInput = errors.New("invalid price input")
	// ErrPersistence marks a failed state write; the in-memory fire is discarded.
	ErrPersistence = errors.New("state persistence failure")
	// ErrNotification marks delivery failure after the state was committed.
	ErrNotification = errors.New("notification delivery failure")
)
