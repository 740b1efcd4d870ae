// Package engine is the facade the presentation layer talks to. It owns a
// cached snapshot of the record store, invalidates it on commit
// notifications, and answers every balance, feed and settlement query by
// delegating to the pure calculator, reconciler and feed packages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evenlyhq/evenly/internal/calculator"
	"github.com/evenlyhq/evenly/internal/feed"
	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
	"github.com/evenlyhq/evenly/internal/reconciler"
	"github.com/evenlyhq/evenly/internal/storage"
)

// ErrAlreadyUndone marks a second undo of the same settlement. Each
// settlement can be reversed once; an unchecked repeat would push the pair's
// balance past zero in the opposite direction.
var ErrAlreadyUndone = errors.New("settlement already undone")

// Engine computes balances and feeds over record-store snapshots.
// All mutating calls go through the store; the engine never mutates a
// snapshot. Reads are safe from any number of goroutines.
type Engine struct {
	store storage.Store

	mu   sync.RWMutex
	gen  uint64
	snap *models.Snapshot
}

// New creates an engine bound to a store and subscribes it to commit
// notifications. Recompute is lazy: a commit only drops the cached snapshot,
// the next read loads a fresh one.
func New(store storage.Store) *Engine {
	e := &Engine{store: store}
	store.Subscribe(e.onCommit)
	return e
}

func (e *Engine) onCommit(c storage.Commit) {
	e.mu.Lock()
	e.snap = nil
	e.gen++
	e.mu.Unlock()
	slog.Debug("snapshot invalidated", "mutation", string(c.Kind))
}

// snapshot returns the cached snapshot, loading one from the store if a
// commit invalidated it.
func (e *Engine) snapshot(ctx context.Context) (*models.Snapshot, error) {
	e.mu.RLock()
	snap, gen := e.snap, e.gen
	e.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	snap, err := e.store.Snapshot(ctx, models.AllScope())
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	e.mu.Lock()
	// A commit that landed while the snapshot was loading already cleared
	// the cache; installing the pre-commit snapshot now would pin stale
	// balances past their invalidation. Serve it to this caller only.
	if e.gen == gen {
		e.snap = snap
	}
	e.mu.Unlock()
	return snap, nil
}

// PairwiseBalance returns the net amount b owes a (positive) or a owes b
// (negative).
func (e *Engine) PairwiseBalance(ctx context.Context, a, b string) (money.Money, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return money.Zero(), err
	}
	return calculator.PairwiseBalance(snap, a, b)
}

// PersonBalance returns p's net position across the whole ledger.
func (e *Engine) PersonBalance(ctx context.Context, p string) (money.Money, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return money.Zero(), err
	}
	return calculator.PersonBalance(snap, p)
}

// GroupBalance returns the viewer's net position within one group.
func (e *Engine) GroupBalance(ctx context.Context, groupID, viewer string) (money.Money, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return money.Zero(), err
	}
	return calculator.GroupBalance(snap, groupID, viewer)
}

// MemberBalances returns each group member's balance against the viewer.
func (e *Engine) MemberBalances(ctx context.Context, groupID, viewer string) ([]calculator.MemberBalance, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return calculator.MemberBalances(snap, groupID, viewer)
}

// MembersWhoOweViewer returns the group members with an outstanding debt to
// the viewer.
func (e *Engine) MembersWhoOweViewer(ctx context.Context, groupID, viewer string) ([]calculator.MemberBalance, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return calculator.MembersWhoOweViewer(snap, groupID, viewer)
}

// BuildFeed returns the merged, day-grouped activity timeline for a scope.
func (e *Engine) BuildFeed(ctx context.Context, scope models.Scope, viewer string) ([]feed.DayGroup, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return feed.Build(snap, scope, viewer)
}

// ExpenseInput describes a new shared expense.
type ExpenseInput struct {
	Title   string
	Amount  money.Money
	Date    time.Time
	Method  models.SplitMethod
	GroupID string

	// Payers lists who actually paid and how much. Shares must sum to
	// Amount within the rounding tolerance.
	Payers []models.PayerShare
}

// AddExpense computes the splits for a new expense and commits the expense,
// splits and payer shares atomically.
func (e *Engine) AddExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	if len(in.Payers) == 0 {
		return nil, fmt.Errorf("%w: expense has no payers", calculator.ErrInvalidExpense)
	}
	paid := money.Zero()
	for _, p := range in.Payers {
		if !p.AmountPaid.IsPositive() {
			return nil, fmt.Errorf("%w: payer %s paid %s", calculator.ErrInvalidExpense, p.PersonID, p.AmountPaid)
		}
		paid = paid.Add(p.AmountPaid)
	}
	if !paid.EqualsWithin(in.Amount, money.SplitTolerance(len(in.Payers))) {
		return nil, fmt.Errorf("%w: payer shares sum to %s, want %s", calculator.ErrInvalidExpense, paid, in.Amount)
	}
	if in.GroupID != "" {
		if _, err := e.store.GetGroup(ctx, in.GroupID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: group %s", calculator.ErrUnknownEntity, in.GroupID)
			}
			return nil, err
		}
	}

	splits, err := calculator.ComputeSplits("", in.Amount, in.Method)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		Title:   in.Title,
		Amount:  in.Amount,
		Date:    in.Date,
		Method:  in.Method,
		GroupID: in.GroupID,
	}
	if err := e.store.CreateExpense(ctx, expense, splits, in.Payers); err != nil {
		return nil, err
	}

	e.autoAddParticipantsToGroup(ctx, expense.GroupID, in.Method, in.Payers)
	return expense, nil
}

// autoAddParticipantsToGroup adds any expense participants or payers not
// already in the group. Failures are logged, not returned: the expense is
// already committed and recomputation does not depend on membership.
func (e *Engine) autoAddParticipantsToGroup(ctx context.Context, groupID string, method models.SplitMethod, payers []models.PayerShare) {
	if groupID == "" {
		return
	}
	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Warn("autoAddParticipantsToGroup: failed to get group", "group_id", groupID, "error", err)
		return
	}

	var newMembers []string
	add := func(id string) {
		if group.HasMember(id) {
			return
		}
		for _, existing := range newMembers {
			if existing == id {
				return
			}
		}
		newMembers = append(newMembers, id)
	}
	for _, id := range models.Participants(method) {
		add(id)
	}
	for _, p := range payers {
		add(p.PersonID)
	}
	if len(newMembers) == 0 {
		return
	}

	if err := e.store.AddGroupMembers(ctx, groupID, newMembers); err != nil {
		slog.Error("autoAddParticipantsToGroup: failed to add members", "group_id", groupID, "error", err)
		return
	}
	slog.Info("auto-added expense participants to group", "group_id", groupID, "new_members", newMembers)
}

// DeleteExpense removes an expense and its splits and payer shares.
func (e *Engine) DeleteExpense(ctx context.Context, expenseID string) error {
	return e.store.DeleteExpense(ctx, expenseID)
}

// outstandingDebt returns how much `from` currently owes `to`, restricted to
// a group's ledger when groupID is set.
func (e *Engine) outstandingDebt(ctx context.Context, from, to, groupID string) (money.Money, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return money.Zero(), err
	}
	if groupID == "" {
		return calculator.PairwiseBalance(snap, to, from)
	}
	members, err := calculator.MemberBalances(snap, groupID, to)
	if err != nil {
		return money.Zero(), err
	}
	for _, mb := range members {
		if mb.PersonID == from {
			return mb.Balance, nil
		}
	}
	return money.Zero(), fmt.Errorf("%w: person %s is not a member of group %s", calculator.ErrUnknownEntity, from, groupID)
}

// Settle validates and commits a settlement of amount from debtor to
// creditor. A non-empty groupID tags the settlement as a group settlement
// and validates it against the group-restricted balance.
func (e *Engine) Settle(ctx context.Context, from, to string, amount money.Money, groupID, note string) (*models.Settlement, error) {
	outstanding, err := e.outstandingDebt(ctx, from, to, groupID)
	if err != nil {
		return nil, err
	}
	settlement, err := reconciler.Propose(from, to, amount, outstanding)
	if err != nil {
		return nil, err
	}
	settlement.GroupID = groupID
	settlement.Note = note
	settlement.Date = time.Now().UTC()
	if err := e.store.CreateSettlement(ctx, &settlement); err != nil {
		return nil, err
	}
	return &settlement, nil
}

// SettleFully commits a settlement sized to zero out the pair's balance.
func (e *Engine) SettleFully(ctx context.Context, from, to, groupID, note string) (*models.Settlement, error) {
	outstanding, err := e.outstandingDebt(ctx, from, to, groupID)
	if err != nil {
		return nil, err
	}
	settlement, err := reconciler.Full(from, to, outstanding)
	if err != nil {
		return nil, err
	}
	settlement.GroupID = groupID
	settlement.Note = note
	settlement.Date = time.Now().UTC()
	if err := e.store.CreateSettlement(ctx, &settlement); err != nil {
		return nil, err
	}
	return &settlement, nil
}

// UndoSettlement appends the equal-and-opposite record of an existing
// settlement, restoring all balances to their prior values. A settlement can
// be undone once; a repeat returns ErrAlreadyUndone.
func (e *Engine) UndoSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	original, err := e.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	marker := reconciler.ReversalNote(settlementID)
	for i := range snap.Settlements {
		if snap.Settlements[i].Note == marker {
			return nil, fmt.Errorf("%w: settlement %s", ErrAlreadyUndone, settlementID)
		}
	}
	reversal := reconciler.Reverse(*original)
	reversal.Date = time.Now().UTC()
	if err := e.store.CreateSettlement(ctx, &reversal); err != nil {
		return nil, err
	}
	return &reversal, nil
}

// Remind records a nudge to a debtor, snapshotting the amount currently owed
// to the viewer. Reminders never change balances.
func (e *Engine) Remind(ctx context.Context, debtor, viewer, groupID string) (*models.Reminder, error) {
	outstanding, err := e.outstandingDebt(ctx, debtor, viewer, groupID)
	if err != nil {
		return nil, err
	}
	if !outstanding.IsPositive() || outstanding.IsZeroWithinEpsilon() {
		return nil, fmt.Errorf("%w: %s owes nothing", reconciler.ErrAmountExceedsBalance, debtor)
	}
	reminder := &models.Reminder{
		FromPersonID: viewer,
		ToPersonID:   debtor,
		Amount:       outstanding,
		GroupID:      groupID,
	}
	if err := e.store.CreateReminder(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

// MarkReminderRead flags a reminder as read.
func (e *Engine) MarkReminderRead(ctx context.Context, reminderID string) error {
	return e.store.MarkReminderRead(ctx, reminderID)
}

// PostMessage appends a chat message to a person or group thread.
func (e *Engine) PostMessage(ctx context.Context, author string, scope models.Scope, content string) (*models.Message, error) {
	msg := &models.Message{
		AuthorID: author,
		Content:  content,
	}
	switch scope.Kind {
	case models.ScopePerson:
		msg.PersonThreadID = scope.PersonID
	case models.ScopeGroup:
		msg.GroupThreadID = scope.GroupID
	default:
		return nil, fmt.Errorf("message requires a person or group thread")
	}
	if err := e.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
