package service

import "errors"

// Error taxonomy shared across services. Handlers translate these with
// errors.Is into HTTP statuses; everything else is a 500.
var (
	// ErrNotFound: unknown SKU or entity.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock: a reservation or decrement would drive the
	// on-hand count below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStaleReservation: a reservation referenced by an invoice commit has
	// expired or was already consumed. The whole commit fails; the caller may
	// re-scan and retry.
	ErrStaleReservation = errors.New("stale reservation")

	// ErrInvalidState: an operation does not apply to the entity's current
	// lifecycle state, e.g. voiding an already-voided invoice.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidFilter: an analytics query referenced an unknown dimension
	// or a value never observed in committed invoices.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvariantViolation is fatal: stock went negative behind a valid
	// reservation, or a rollup diverged from replay. It signals a
	// concurrency-control bug — logged with full state, never retried
	// automatically, never self-healed.
	ErrInvariantViolation = errors.New("invariant violation")
)
