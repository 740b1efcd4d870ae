package calculator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

// snapshotBuilder accumulates a test ledger with valid splits and payers.
type snapshotBuilder struct {
	t    *testing.T
	snap *models.Snapshot
	seq  int
}

func newSnapshot(t *testing.T, persons ...string) *snapshotBuilder {
	t.Helper()
	snap := &models.Snapshot{
		Persons: make(map[string]models.Person),
		Groups:  make(map[string]models.Group),
	}
	for _, id := range persons {
		snap.Persons[id] = models.Person{ID: id, DisplayName: id}
	}
	return &snapshotBuilder{t: t, snap: snap}
}

func (b *snapshotBuilder) group(id string, members ...string) *snapshotBuilder {
	b.snap.Groups[id] = models.Group{ID: id, Name: id, MemberIDs: members}
	return b
}

func (b *snapshotBuilder) archive(personID string) *snapshotBuilder {
	p := b.snap.Persons[personID]
	p.Archived = true
	b.snap.Persons[personID] = p
	return b
}

// expense adds an expense paid as given and split by method. Splits are
// computed through ComputeSplits so fixtures stay arithmetically valid.
func (b *snapshotBuilder) expense(total string, groupID string, method models.SplitMethod, payers map[string]string) *snapshotBuilder {
	b.t.Helper()
	b.seq++
	id := fmt.Sprintf("exp-%d", b.seq)

	amount := mustMoney(b.t, total)
	splits, err := ComputeSplits(id, amount, method)
	if err != nil {
		b.t.Fatalf("ComputeSplits for fixture %s failed: %v", id, err)
	}

	b.snap.Expenses = append(b.snap.Expenses, models.Expense{
		ID:      id,
		Title:   id,
		Amount:  amount,
		Method:  method,
		GroupID: groupID,
	})
	b.snap.Splits = append(b.snap.Splits, splits...)
	for personID, paid := range payers {
		b.snap.PayerShares = append(b.snap.PayerShares, models.PayerShare{
			ExpenseID:  id,
			PersonID:   personID,
			AmountPaid: mustMoney(b.t, paid),
		})
	}
	return b
}

func (b *snapshotBuilder) settlement(from, to, amount, groupID string) *snapshotBuilder {
	b.t.Helper()
	b.seq++
	b.snap.Settlements = append(b.snap.Settlements, models.Settlement{
		ID:           fmt.Sprintf("stl-%d", b.seq),
		FromPersonID: from,
		ToPersonID:   to,
		Amount:       mustMoney(b.t, amount),
		GroupID:      groupID,
	})
	return b
}

func equal(members ...string) models.SplitMethod {
	return models.EqualSplit{ParticipantIDs: members}
}

func assertBalance(t *testing.T, got money.Money, err error, want string) {
	t.Helper()
	if err != nil {
		t.Fatalf("balance query failed: %v", err)
	}
	if got.String() != want {
		t.Errorf("balance = %s, want %s", got, want)
	}
}

func TestPairwiseBalance(t *testing.T) {
	t.Run("equal three-way dinner", func(t *testing.T) {
		// Alice pays 90.00, split equally with Bob and Carol.
		snap := newSnapshot(t, "alice", "bob", "carol").
			expense("90.00", "", equal("alice", "bob", "carol"), map[string]string{"alice": "90.00"}).
			snap

		got, err := PairwiseBalance(snap, "alice", "bob")
		assertBalance(t, got, err, "30.00")

		got, err = PairwiseBalance(snap, "alice", "carol")
		assertBalance(t, got, err, "30.00")

		// Bob and Carol share the expense but owe each other nothing.
		got, err = PairwiseBalance(snap, "bob", "carol")
		assertBalance(t, got, err, "0.00")
	})

	t.Run("antisymmetric", func(t *testing.T) {
		snap := newSnapshot(t, "alice", "bob").
			expense("25.00", "", equal("alice", "bob"), map[string]string{"alice": "25.00"}).
			snap

		ab, err := PairwiseBalance(snap, "alice", "bob")
		if err != nil {
			t.Fatalf("PairwiseBalance failed: %v", err)
		}
		ba, err := PairwiseBalance(snap, "bob", "alice")
		if err != nil {
			t.Fatalf("PairwiseBalance failed: %v", err)
		}
		if !ab.Equal(ba.Neg()) {
			t.Errorf("PairwiseBalance(alice, bob) = %s, PairwiseBalance(bob, alice) = %s; want negations", ab, ba)
		}
	})

	t.Run("settlement zeroes the pair", func(t *testing.T) {
		snap := newSnapshot(t, "alice", "bob", "carol").
			expense("90.00", "", equal("alice", "bob", "carol"), map[string]string{"alice": "90.00"}).
			settlement("bob", "alice", "30.00", "").
			snap

		got, err := PairwiseBalance(snap, "alice", "bob")
		assertBalance(t, got, err, "0.00")

		// Carol's debt is untouched.
		got, err = PairwiseBalance(snap, "alice", "carol")
		assertBalance(t, got, err, "30.00")
	})

	t.Run("multi-payer expense attributes debt proportionally", func(t *testing.T) {
		// Alice pays 60.00 and Bob 40.00 of a 100.00 expense split equally
		// four ways. Alice nets +35, Bob +15; Carol and Dave each owe 25,
		// attributed 35:15 across the creditors.
		snap := newSnapshot(t, "alice", "bob", "carol", "dave").
			expense("100.00", "", equal("alice", "bob", "carol", "dave"),
				map[string]string{"alice": "60.00", "bob": "40.00"}).
			snap

		got, err := PairwiseBalance(snap, "alice", "carol")
		assertBalance(t, got, err, "17.50")

		got, err = PairwiseBalance(snap, "bob", "carol")
		assertBalance(t, got, err, "7.50")

		got, err = PairwiseBalance(snap, "alice", "dave")
		assertBalance(t, got, err, "17.50")

		// Alice and Bob both came out ahead; no debt between them.
		got, err = PairwiseBalance(snap, "alice", "bob")
		assertBalance(t, got, err, "0.00")
	})

	t.Run("self balance is zero", func(t *testing.T) {
		snap := newSnapshot(t, "alice", "bob").
			expense("10.00", "", equal("alice", "bob"), map[string]string{"alice": "10.00"}).
			snap
		got, err := PairwiseBalance(snap, "alice", "alice")
		assertBalance(t, got, err, "0.00")
	})

	t.Run("unknown person", func(t *testing.T) {
		snap := newSnapshot(t, "alice").snap
		_, err := PairwiseBalance(snap, "alice", "ghost")
		if !errors.Is(err, ErrUnknownEntity) {
			t.Fatalf("PairwiseBalance error = %v, want ErrUnknownEntity", err)
		}
	})
}

func TestPersonBalance(t *testing.T) {
	snap := newSnapshot(t, "alice", "bob", "carol").
		expense("90.00", "", equal("alice", "bob", "carol"), map[string]string{"alice": "90.00"}).
		expense("20.00", "", equal("alice", "bob"), map[string]string{"bob": "20.00"}).
		snap

	// Alice is owed 30 by each of Bob and Carol, and owes Bob 10.
	got, err := PersonBalance(snap, "alice")
	assertBalance(t, got, err, "50.00")

	got, err = PersonBalance(snap, "carol")
	assertBalance(t, got, err, "-30.00")

	// A person's balance equals the sum of their pairwise balances.
	sum := money.Zero()
	for _, other := range []string{"bob", "carol"} {
		pb, err := PairwiseBalance(snap, "alice", other)
		if err != nil {
			t.Fatalf("PairwiseBalance failed: %v", err)
		}
		sum = sum.Add(pb)
	}
	alice, err := PersonBalance(snap, "alice")
	if err != nil {
		t.Fatalf("PersonBalance failed: %v", err)
	}
	if !alice.Equal(sum) {
		t.Errorf("PersonBalance = %s, sum of pairwise = %s", alice, sum)
	}
}

func TestGroupBalances(t *testing.T) {
	build := func(t *testing.T) *models.Snapshot {
		return newSnapshot(t, "alice", "bob", "carol", "dave").
			group("trip", "alice", "bob", "carol", "dave").
			expense("100.00", "trip", equal("alice", "bob", "carol", "dave"),
				map[string]string{"alice": "60.00", "bob": "40.00"}).
			snap
	}

	t.Run("group balance nets the viewer's pairs", func(t *testing.T) {
		got, err := GroupBalance(build(t), "trip", "alice")
		assertBalance(t, got, err, "35.00")

		got, err = GroupBalance(build(t), "trip", "carol")
		assertBalance(t, got, err, "-25.00")
	})

	t.Run("group balance equals sum of member balances", func(t *testing.T) {
		snap := build(t)
		members, err := MemberBalances(snap, "trip", "alice")
		if err != nil {
			t.Fatalf("MemberBalances failed: %v", err)
		}
		sum := money.Zero()
		for _, mb := range members {
			sum = sum.Add(mb.Balance)
		}
		total, err := GroupBalance(snap, "trip", "alice")
		if err != nil {
			t.Fatalf("GroupBalance failed: %v", err)
		}
		if !total.Equal(sum) {
			t.Errorf("GroupBalance = %s, sum of MemberBalances = %s", total, sum)
		}
	})

	t.Run("ungrouped expenses excluded", func(t *testing.T) {
		snap := newSnapshot(t, "alice", "bob").
			group("trip", "alice", "bob").
			expense("10.00", "trip", equal("alice", "bob"), map[string]string{"alice": "10.00"}).
			expense("40.00", "", equal("alice", "bob"), map[string]string{"alice": "40.00"}).
			snap

		got, err := GroupBalance(snap, "trip", "alice")
		assertBalance(t, got, err, "5.00")

		// The direct pair still sees both.
		got, err = PairwiseBalance(snap, "alice", "bob")
		assertBalance(t, got, err, "25.00")
	})

	t.Run("group settlement only affects the group ledger", func(t *testing.T) {
		snap := newSnapshot(t, "alice", "bob").
			group("trip", "alice", "bob").
			expense("10.00", "trip", equal("alice", "bob"), map[string]string{"alice": "10.00"}).
			settlement("bob", "alice", "5.00", "trip").
			snap

		got, err := GroupBalance(snap, "trip", "alice")
		assertBalance(t, got, err, "0.00")
	})

	t.Run("unknown group", func(t *testing.T) {
		snap := newSnapshot(t, "alice").snap
		_, err := GroupBalance(snap, "nope", "alice")
		if !errors.Is(err, ErrUnknownEntity) {
			t.Fatalf("GroupBalance error = %v, want ErrUnknownEntity", err)
		}
	})
}

func TestMembersWhoOweViewer(t *testing.T) {
	snap := newSnapshot(t, "alice", "bob", "carol", "dave").
		group("trip", "alice", "bob", "carol", "dave").
		expense("90.00", "trip", equal("alice", "bob", "carol"), map[string]string{"alice": "90.00"}).
		settlement("bob", "alice", "30.00", "trip").
		archive("carol").
		snap

	owing, err := MembersWhoOweViewer(snap, "trip", "alice")
	if err != nil {
		t.Fatalf("MembersWhoOweViewer failed: %v", err)
	}

	// Bob settled up, Carol is archived, Dave owes nothing.
	if len(owing) != 0 {
		t.Errorf("MembersWhoOweViewer = %v, want none", owing)
	}

	// Archived members still count toward the viewer's balance.
	got, err := GroupBalance(snap, "trip", "alice")
	assertBalance(t, got, err, "30.00")
}

func TestValidateSnapshot(t *testing.T) {
	base := func(t *testing.T) *snapshotBuilder {
		return newSnapshot(t, "alice", "bob").
			expense("10.00", "", equal("alice", "bob"), map[string]string{"alice": "10.00"})
	}

	tests := []struct {
		name    string
		mutate  func(t *testing.T, snap *models.Snapshot)
		wantErr error
	}{
		{
			name:    "valid snapshot",
			mutate:  func(t *testing.T, snap *models.Snapshot) {},
			wantErr: nil,
		},
		{
			name: "split referencing unknown person",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Splits[0].OwedBy = "ghost"
			},
			wantErr: ErrUnknownEntity,
		},
		{
			name: "expense referencing unknown group",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Expenses[0].GroupID = "nope"
			},
			wantErr: ErrUnknownEntity,
		},
		{
			name: "orphan split",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Splits = append(snap.Splits, models.Split{
					ExpenseID: "missing", OwedBy: "alice", Amount: money.FromMinorUnits(100),
				})
			},
			wantErr: ErrUnknownEntity,
		},
		{
			name: "expense with no splits",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Splits = nil
			},
			wantErr: ErrDegenerateExpense,
		},
		{
			name: "splits not reconciling with total",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Splits[0].Amount = snap.Splits[0].Amount.Add(money.FromMinorUnits(50))
			},
			wantErr: ErrInvalidExpense,
		},
		{
			name: "duplicate split for one person",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Splits[1].OwedBy = snap.Splits[0].OwedBy
			},
			wantErr: ErrInvalidExpense,
		},
		{
			name: "payer shares not reconciling with total",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.PayerShares[0].AmountPaid = mustMoney(t, "8.00")
			},
			wantErr: ErrInvalidExpense,
		},
		{
			name: "settlement paying self",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Settlements = append(snap.Settlements, models.Settlement{
					ID: "stl", FromPersonID: "alice", ToPersonID: "alice",
					Amount: money.FromMinorUnits(100),
				})
			},
			wantErr: ErrInvalidExpense,
		},
		{
			name: "settlement referencing unknown person",
			mutate: func(t *testing.T, snap *models.Snapshot) {
				snap.Settlements = append(snap.Settlements, models.Settlement{
					ID: "stl", FromPersonID: "ghost", ToPersonID: "alice",
					Amount: money.FromMinorUnits(100),
				})
			},
			wantErr: ErrUnknownEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := base(t).snap
			tt.mutate(t, snap)

			err := ValidateSnapshot(snap)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateSnapshot failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateSnapshot error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("corrupt entry reported even when filtered out", func(t *testing.T) {
		snap := newSnapshot(t, "alice", "bob").
			group("trip", "alice", "bob").
			expense("10.00", "trip", equal("alice", "bob"), map[string]string{"alice": "10.00"}).
			expense("20.00", "", equal("alice", "bob"), map[string]string{"alice": "20.00"}).
			snap
		// Corrupt the ungrouped expense; the group query must still fail.
		snap.Splits[2].OwedBy = "ghost"

		_, err := GroupBalance(snap, "trip", "alice")
		if !errors.Is(err, ErrUnknownEntity) {
			t.Fatalf("GroupBalance error = %v, want ErrUnknownEntity", err)
		}
	})
}
