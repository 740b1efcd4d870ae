package models

// Person represents a participant in the ledger.
type Person struct {
	// ID is the unique identifier for the person (UUID format).
	ID string

	// DisplayName is the name shown in balance listings and feeds.
	DisplayName string

	// ColorTag is the presentation hint chosen for this person's avatar.
	ColorTag string

	// Archived removes the person from active balance listings. Historical
	// expenses and settlements still count toward balances.
	Archived bool

	// CreatedAt is the Unix timestamp when the person was created.
	CreatedAt int64

	// Seq is the creation sequence number assigned by the store.
	Seq int64
}

// Group represents a named collection of persons sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g. "Roommates", "Ski Trip").
	Name string

	// ColorTag is the presentation hint for the group.
	ColorTag string

	// MemberIDs are the person IDs belonging to this group. The creating
	// user is always a member.
	MemberIDs []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// Seq is the creation sequence number assigned by the store.
	Seq int64
}

// HasMember reports whether the person is a member of the group.
func (g Group) HasMember(personID string) bool {
	for _, id := range g.MemberIDs {
		if id == personID {
			return true
		}
	}
	return false
}
