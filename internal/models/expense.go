package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/evenlyhq/evenly/internal/money"
)

// Expense represents one shared expense event. The expense, its splits and
// its payer shares are created and deleted together as one atomic unit.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Title is the human-readable name for the expense.
	Title string

	// Amount is the total of the expense. Always positive.
	Amount money.Money

	// Date is when the expense happened (feed position).
	Date time.Time

	// Method is how the total is divided among participants.
	Method SplitMethod

	// GroupID is the owning group, or empty for a person-to-person expense.
	GroupID string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Seq is the creation sequence number assigned by the store.
	Seq int64
}

// PayerShare is one contributor's paid portion of an expense. An expense may
// have several payers; their shares sum to the expense amount.
type PayerShare struct {
	ExpenseID  string
	PersonID   string
	AmountPaid money.Money
}

// Split is one participant's owed portion of an expense. Each participant
// appears at most once per expense.
type Split struct {
	ExpenseID string

	// OwedBy is the person who owes this portion.
	OwedBy string

	// Amount is the owed portion after rounding to minor units. All splits
	// of an expense sum exactly to the expense amount.
	Amount money.Money

	// RawAmount is the ideal pre-rounding share, kept so a recompute can
	// re-derive which splits absorbed the rounding remainder.
	RawAmount decimal.Decimal
}

// SplitMethod is a closed set of ways to divide an expense. A type switch
// over EqualSplit, PercentageSplit and ExactSplit is exhaustive; a new kind
// cannot silently fall through to a default branch.
type SplitMethod interface {
	splitMethod()
	// Kind returns the stable name used for persistence and wire encoding.
	Kind() string
}

// EqualSplit divides the total evenly among the listed participants.
type EqualSplit struct {
	// ParticipantIDs are the persons sharing the expense.
	ParticipantIDs []string
}

// PercentageSplit divides the total by weight. Weights are percentages and
// must sum to 100.
type PercentageSplit struct {
	Weights []PercentageWeight
}

// PercentageWeight is one participant's percentage of the total.
type PercentageWeight struct {
	PersonID string
	Percent  decimal.Decimal
}

// ExactSplit assigns each participant a fixed amount. Amounts must sum to
// the expense total.
type ExactSplit struct {
	Amounts []ExactAmount
}

// ExactAmount is one participant's fixed share.
type ExactAmount struct {
	PersonID string
	Amount   money.Money
}

func (EqualSplit) splitMethod()      {}
func (PercentageSplit) splitMethod() {}
func (ExactSplit) splitMethod()      {}

func (EqualSplit) Kind() string      { return "equal" }
func (PercentageSplit) Kind() string { return "percentage" }
func (ExactSplit) Kind() string      { return "exact" }

// Participants returns the distinct person IDs the method divides among, in
// declaration order.
func Participants(m SplitMethod) []string {
	switch v := m.(type) {
	case EqualSplit:
		return append([]string(nil), v.ParticipantIDs...)
	case PercentageSplit:
		ids := make([]string, len(v.Weights))
		for i, w := range v.Weights {
			ids[i] = w.PersonID
		}
		return ids
	case ExactSplit:
		ids := make([]string, len(v.Amounts))
		for i, a := range v.Amounts {
			ids[i] = a.PersonID
		}
		return ids
	default:
		return nil
	}
}
