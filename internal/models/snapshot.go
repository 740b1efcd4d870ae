package models

// ScopeKind selects which slice of the ledger a snapshot or query covers.
type ScopeKind int

const (
	// ScopeAll covers the whole ledger.
	ScopeAll ScopeKind = iota
	// ScopePerson covers one direct (person-to-person) thread.
	ScopePerson
	// ScopeGroup covers one group thread.
	ScopeGroup
)

// Scope identifies a person thread, a group thread, or the whole ledger.
type Scope struct {
	Kind     ScopeKind
	PersonID string
	GroupID  string
}

// AllScope returns the whole-ledger scope.
func AllScope() Scope {
	return Scope{Kind: ScopeAll}
}

// PersonScope returns the scope of one direct thread.
func PersonScope(personID string) Scope {
	return Scope{Kind: ScopePerson, PersonID: personID}
}

// GroupScope returns the scope of one group thread.
func GroupScope(groupID string) Scope {
	return Scope{Kind: ScopeGroup, GroupID: groupID}
}

// Snapshot is a read-consistent view of the entity graph handed to the engine
// by the record store. The engine never mutates a snapshot; all balance and
// feed computation is a pure function of one.
type Snapshot struct {
	Persons     map[string]Person
	Groups      map[string]Group
	Expenses    []Expense
	Splits      []Split
	PayerShares []PayerShare
	Settlements []Settlement
	Reminders   []Reminder
	Messages    []Message
}

// SplitsByExpense indexes the snapshot's splits by expense ID.
func (s *Snapshot) SplitsByExpense() map[string][]Split {
	idx := make(map[string][]Split)
	for _, sp := range s.Splits {
		idx[sp.ExpenseID] = append(idx[sp.ExpenseID], sp)
	}
	return idx
}

// PayersByExpense indexes the snapshot's payer shares by expense ID.
func (s *Snapshot) PayersByExpense() map[string][]PayerShare {
	idx := make(map[string][]PayerShare)
	for _, ps := range s.PayerShares {
		idx[ps.ExpenseID] = append(idx[ps.ExpenseID], ps)
	}
	return idx
}

// HasPerson reports whether the snapshot contains the person.
func (s *Snapshot) HasPerson(id string) bool {
	_, ok := s.Persons[id]
	return ok
}
