package models

import (
	"time"

	"github.com/evenlyhq/evenly/internal/money"
)

// Settlement represents a recorded payment extinguishing debt between two
// persons. Settlements move a pairwise balance toward zero, never past it;
// the reconciler rejects anything else before it reaches the store.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// FromPersonID is who paid (the debtor settling up).
	FromPersonID string

	// ToPersonID is who received the payment.
	ToPersonID string

	// Amount is the payment amount. Always positive.
	Amount money.Money

	// Date is when the payment was made.
	Date time.Time

	// IsFullSettlement marks a settlement sized to zero out the pair's
	// outstanding balance at the time it was proposed.
	IsFullSettlement bool

	// GroupID tags a settlement made in a group context, or empty.
	GroupID string

	// Note is an optional description.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// Seq is the creation sequence number assigned by the store.
	Seq int64
}

// Reminder is a nudge sent to a debtor. It is a side channel only and never
// changes balances.
type Reminder struct {
	ID string

	// FromPersonID is the creditor sending the nudge.
	FromPersonID string

	// ToPersonID is the debtor being nudged.
	ToPersonID string

	// Amount is a snapshot of the balance at send time, for display.
	Amount money.Money

	// GroupID tags a reminder sent from a group context, or empty.
	GroupID string

	CreatedAt time.Time
	IsRead    bool
	Seq       int64
}

// Message is a free-text chat entry attached to a person or group thread.
// Messages are purely presentational and excluded from balance math.
type Message struct {
	ID string

	// PersonThreadID is the counterparty for a direct thread, empty when the
	// message belongs to a group thread.
	PersonThreadID string

	// GroupThreadID is the owning group thread, empty for direct threads.
	GroupThreadID string

	// AuthorID is the person who wrote the message.
	AuthorID string

	Content string
	SentAt  time.Time
	Seq     int64
}
