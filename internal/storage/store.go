// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/evenlyhq/evenly/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// MutationKind names the atomic write a commit notification reports.
type MutationKind string

const (
	MutationExpenseCreated    MutationKind = "expense_created"
	MutationExpenseDeleted    MutationKind = "expense_deleted"
	MutationSettlementCreated MutationKind = "settlement_created"
	MutationSettlementDeleted MutationKind = "settlement_deleted"
	MutationReminderCreated   MutationKind = "reminder_created"
	MutationReminderRead      MutationKind = "reminder_read"
	MutationMessageCreated    MutationKind = "message_created"
	MutationPersonCreated     MutationKind = "person_created"
	MutationPersonArchived    MutationKind = "person_archived"
	MutationGroupCreated      MutationKind = "group_created"
	MutationGroupMembersAdded MutationKind = "group_members_added"
)

// Commit describes one committed atomic write. Subscribers treat it as
// "invalidate cached results for the affected scope".
type Commit struct {
	Kind  MutationKind
	Scope models.Scope
}

// Store defines the record-store boundary the engine consumes. The store
// exclusively owns all entities: it serializes writers, commits each
// mutation atomically, and hands the engine read-consistent snapshots. A
// snapshot never contains a half-written expense.
type Store interface {
	// Snapshot returns a read-consistent view of the entity graph. The
	// returned view may be a superset of the requested scope; it is always
	// consistent for it.
	Snapshot(ctx context.Context, scope models.Scope) (*models.Snapshot, error)

	// CreateExpense commits an expense with its splits and payer shares as
	// one atomic unit. IDs, timestamps and sequence numbers are assigned by
	// the store and written back to the passed records.
	CreateExpense(ctx context.Context, expense *models.Expense, splits []models.Split, payers []models.PayerShare) error

	// DeleteExpense removes an expense; its splits and payer shares cascade.
	DeleteExpense(ctx context.Context, expenseID string) error

	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	DeleteSettlement(ctx context.Context, settlementID string) error

	CreateReminder(ctx context.Context, reminder *models.Reminder) error
	MarkReminderRead(ctx context.Context, reminderID string) error

	CreateMessage(ctx context.Context, message *models.Message) error

	CreatePerson(ctx context.Context, person *models.Person) error
	ArchivePerson(ctx context.Context, personID string) error
	GetPerson(ctx context.Context, personID string) (*models.Person, error)

	CreateGroup(ctx context.Context, group *models.Group) error
	AddGroupMembers(ctx context.Context, groupID string, memberIDs []string) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// Subscribe registers a callback fired after every successful commit.
	// Callbacks run synchronously on the committing goroutine and must be
	// cheap.
	Subscribe(fn func(Commit))

	// Close releases any resources held by the store.
	Close() error
}

// AccountStore defines the persistence the identity provider needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByPersonID(ctx context.Context, personID string) (*models.Account, error)
}
