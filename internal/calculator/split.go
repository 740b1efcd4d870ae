// Package calculator computes splits and balances from a ledger snapshot.
// Everything here is a pure function: no I/O, no randomness, no floating
// point. Identical snapshots always yield identical results.
package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeSplits divides an expense total into per-participant splits
// according to the split method. The returned splits always sum exactly to
// the total: fractional-cent remainders are assigned to the participants
// with the largest raw fractional share (ties broken by declaration order).
func ComputeSplits(expenseID string, total money.Money, method models.SplitMethod) ([]models.Split, error) {
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrDegenerateExpense, total)
	}

	participants := models.Participants(method)
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrDegenerateExpense)
	}
	seen := make(map[string]bool, len(participants))
	for _, id := range participants {
		if id == "" {
			return nil, fmt.Errorf("%w: empty participant id", ErrInvalidExpense)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: participant %s listed twice", ErrInvalidExpense, id)
		}
		seen[id] = true
	}

	raw, err := rawShares(total, method, participants)
	if err != nil {
		return nil, err
	}

	return allocate(expenseID, total, participants, raw), nil
}

// rawShares computes the ideal pre-rounding share per participant.
func rawShares(total money.Money, method models.SplitMethod, participants []string) (map[string]decimal.Decimal, error) {
	raw := make(map[string]decimal.Decimal, len(participants))

	switch m := method.(type) {
	case models.EqualSplit:
		per := total.Decimal().Div(decimal.NewFromInt(int64(len(participants))))
		for _, id := range participants {
			raw[id] = per
		}

	case models.PercentageSplit:
		sum := decimal.Zero
		for _, w := range m.Weights {
			if !w.Percent.IsPositive() {
				return nil, fmt.Errorf("%w: percentage for %s must be positive", ErrInvalidExpense, w.PersonID)
			}
			sum = sum.Add(w.Percent)
			raw[w.PersonID] = total.Decimal().Mul(w.Percent).Div(oneHundred)
		}
		if !sum.Equal(oneHundred) {
			return nil, fmt.Errorf("%w: percentages sum to %s, want 100", ErrInvalidExpense, sum)
		}

	case models.ExactSplit:
		sum := money.Zero()
		for _, a := range m.Amounts {
			if a.Amount.IsNegative() {
				return nil, fmt.Errorf("%w: exact amount for %s is negative", ErrInvalidExpense, a.PersonID)
			}
			sum = sum.Add(a.Amount)
			raw[a.PersonID] = a.Amount.Decimal()
		}
		if !sum.Equal(total) {
			return nil, fmt.Errorf("%w: exact amounts sum to %s, want %s", ErrInvalidExpense, sum, total)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported split method %T", ErrInvalidExpense, method)
	}

	return raw, nil
}

// allocate rounds raw shares down to minor units and distributes the
// remaining units by largest fractional remainder, so the rounded splits
// conserve the total exactly.
func allocate(expenseID string, total money.Money, participants []string, raw map[string]decimal.Decimal) []models.Split {
	type share struct {
		index int
		id    string
		floor int64
		frac  decimal.Decimal
	}

	shares := make([]share, len(participants))
	var allocated int64
	for i, id := range participants {
		units := raw[id].Shift(2)
		floor := units.Floor()
		shares[i] = share{
			index: i,
			id:    id,
			floor: floor.IntPart(),
			frac:  units.Sub(floor),
		}
		allocated += shares[i].floor
	}

	remainder := total.MinorUnits() - allocated

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]].frac.GreaterThan(shares[order[b]].frac)
	})
	for i := int64(0); i < remainder; i++ {
		shares[order[i%int64(len(order))]].floor++
	}

	splits := make([]models.Split, len(shares))
	for i, sh := range shares {
		splits[i] = models.Split{
			ExpenseID: expenseID,
			OwedBy:    sh.id,
			Amount:    money.FromMinorUnits(sh.floor),
			RawAmount: raw[sh.id],
		}
	}
	return splits
}
