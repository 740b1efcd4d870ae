package calculator

import "errors"

// Engine errors are typed sentinels so callers can branch with errors.Is.
// Data-integrity problems are surfaced, never silently corrected: a snapshot
// that does not reconcile is a ledger bug the caller must see.
var (
	// ErrDegenerateExpense marks a zero-amount or zero-participant expense.
	ErrDegenerateExpense = errors.New("degenerate expense")

	// ErrInvalidExpense marks splits or payer shares that do not reconcile
	// with the expense total beyond the rounding tolerance.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrUnknownEntity marks a split, payer share or settlement referencing
	// a person or expense not present in the snapshot.
	ErrUnknownEntity = errors.New("unknown entity reference")
)
