// Package feed builds the merged activity timeline for a person or group
// thread: expenses, settlements, reminders and messages in one sequence,
// grouped into contiguous calendar-day runs. Building is read-only and
// deterministic; the same snapshot always yields byte-identical ordering,
// which the presentation layer relies on for stable list diffing.
package feed

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/evenlyhq/evenly/internal/models"
)

// ErrUnknownThread marks a feed request for a person or group not present in
// the snapshot.
var ErrUnknownThread = errors.New("unknown feed thread")

// Kind tags which entity a feed item wraps.
type Kind int

const (
	KindExpense Kind = iota
	KindSettlement
	KindReminder
	KindMessage
)

// Item is one displayable unit of the timeline. Exactly one of the entity
// pointers is set, matching Kind.
type Item struct {
	Kind      Kind
	Timestamp time.Time

	// Seq is the creation sequence number, the deterministic tie-break when
	// two items share a timestamp.
	Seq int64

	Expense    *models.Expense
	Settlement *models.Settlement
	Reminder   *models.Reminder
	Message    *models.Message
}

// DayGroup is a contiguous run of items sharing one calendar day, internally
// sorted by timestamp ascending.
type DayGroup struct {
	// Day is midnight of the calendar day in the items' location.
	Day   time.Time
	Items []Item
}

// Build produces the feed for a scope as seen by the viewer. Person scope
// merges the direct ledger between viewer and the person; group scope merges
// the group's ledger; the all scope merges everything.
func Build(snap *models.Snapshot, scope models.Scope, viewer string) ([]DayGroup, error) {
	if !snap.HasPerson(viewer) {
		return nil, fmt.Errorf("%w: person %s", ErrUnknownThread, viewer)
	}

	var items []Item
	switch scope.Kind {
	case models.ScopePerson:
		if !snap.HasPerson(scope.PersonID) {
			return nil, fmt.Errorf("%w: person %s", ErrUnknownThread, scope.PersonID)
		}
		items = personItems(snap, viewer, scope.PersonID)
	case models.ScopeGroup:
		if _, ok := snap.Groups[scope.GroupID]; !ok {
			return nil, fmt.Errorf("%w: group %s", ErrUnknownThread, scope.GroupID)
		}
		items = groupItems(snap, scope.GroupID)
	default:
		items = allItems(snap)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.Before(items[j].Timestamp)
		}
		return items[i].Seq < items[j].Seq
	})

	return groupByDay(items), nil
}

// personItems selects the direct ledger between the viewer and one person:
// ungrouped expenses touching both, settlements between them, reminders in
// the thread, and the thread's messages.
func personItems(snap *models.Snapshot, viewer, person string) []Item {
	touching := expensesTouching(snap, viewer, person)

	var items []Item
	for i := range snap.Expenses {
		exp := &snap.Expenses[i]
		if exp.GroupID == "" && touching[exp.ID] {
			items = append(items, Item{Kind: KindExpense, Timestamp: exp.Date, Seq: exp.Seq, Expense: exp})
		}
	}
	for i := range snap.Settlements {
		s := &snap.Settlements[i]
		between := (s.FromPersonID == viewer && s.ToPersonID == person) ||
			(s.FromPersonID == person && s.ToPersonID == viewer)
		if s.GroupID == "" && between {
			items = append(items, Item{Kind: KindSettlement, Timestamp: s.Date, Seq: s.Seq, Settlement: s})
		}
	}
	for i := range snap.Reminders {
		r := &snap.Reminders[i]
		between := (r.FromPersonID == viewer && r.ToPersonID == person) ||
			(r.FromPersonID == person && r.ToPersonID == viewer)
		if r.GroupID == "" && between {
			items = append(items, Item{Kind: KindReminder, Timestamp: r.CreatedAt, Seq: r.Seq, Reminder: r})
		}
	}
	for i := range snap.Messages {
		msg := &snap.Messages[i]
		inThread := (msg.AuthorID == viewer && msg.PersonThreadID == person) ||
			(msg.AuthorID == person && msg.PersonThreadID == viewer)
		if msg.GroupThreadID == "" && inThread {
			items = append(items, Item{Kind: KindMessage, Timestamp: msg.SentAt, Seq: msg.Seq, Message: msg})
		}
	}
	return items
}

func groupItems(snap *models.Snapshot, groupID string) []Item {
	var items []Item
	for i := range snap.Expenses {
		exp := &snap.Expenses[i]
		if exp.GroupID == groupID {
			items = append(items, Item{Kind: KindExpense, Timestamp: exp.Date, Seq: exp.Seq, Expense: exp})
		}
	}
	for i := range snap.Settlements {
		s := &snap.Settlements[i]
		if s.GroupID == groupID {
			items = append(items, Item{Kind: KindSettlement, Timestamp: s.Date, Seq: s.Seq, Settlement: s})
		}
	}
	for i := range snap.Reminders {
		r := &snap.Reminders[i]
		if r.GroupID == groupID {
			items = append(items, Item{Kind: KindReminder, Timestamp: r.CreatedAt, Seq: r.Seq, Reminder: r})
		}
	}
	for i := range snap.Messages {
		msg := &snap.Messages[i]
		if msg.GroupThreadID == groupID {
			items = append(items, Item{Kind: KindMessage, Timestamp: msg.SentAt, Seq: msg.Seq, Message: msg})
		}
	}
	return items
}

func allItems(snap *models.Snapshot) []Item {
	var items []Item
	for i := range snap.Expenses {
		exp := &snap.Expenses[i]
		items = append(items, Item{Kind: KindExpense, Timestamp: exp.Date, Seq: exp.Seq, Expense: exp})
	}
	for i := range snap.Settlements {
		s := &snap.Settlements[i]
		items = append(items, Item{Kind: KindSettlement, Timestamp: s.Date, Seq: s.Seq, Settlement: s})
	}
	for i := range snap.Reminders {
		r := &snap.Reminders[i]
		items = append(items, Item{Kind: KindReminder, Timestamp: r.CreatedAt, Seq: r.Seq, Reminder: r})
	}
	for i := range snap.Messages {
		msg := &snap.Messages[i]
		items = append(items, Item{Kind: KindMessage, Timestamp: msg.SentAt, Seq: msg.Seq, Message: msg})
	}
	return items
}

// expensesTouching returns the IDs of expenses where both persons appear as
// a payer or a split participant.
func expensesTouching(snap *models.Snapshot, a, b string) map[string]bool {
	involved := make(map[string]map[string]bool)
	mark := func(expenseID, personID string) {
		if involved[expenseID] == nil {
			involved[expenseID] = make(map[string]bool)
		}
		involved[expenseID][personID] = true
	}
	for _, ps := range snap.PayerShares {
		mark(ps.ExpenseID, ps.PersonID)
	}
	for _, sp := range snap.Splits {
		mark(sp.ExpenseID, sp.OwedBy)
	}

	touching := make(map[string]bool)
	for expenseID, people := range involved {
		if people[a] && people[b] {
			touching[expenseID] = true
		}
	}
	return touching
}

// groupByDay splits the sorted items into contiguous calendar-day runs.
func groupByDay(items []Item) []DayGroup {
	var groups []DayGroup
	for _, item := range items {
		day := midnight(item.Timestamp)
		if len(groups) == 0 || !groups[len(groups)-1].Day.Equal(day) {
			groups = append(groups, DayGroup{Day: day})
		}
		groups[len(groups)-1].Items = append(groups[len(groups)-1].Items, item)
	}
	return groups
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
