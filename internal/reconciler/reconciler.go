// Package reconciler validates proposed settlements against the current
// pairwise balance before they are handed to the record store. A settlement
// may only move a balance toward zero: the direction must match the existing
// debt and the amount may not exceed what is outstanding.
package reconciler

import (
	"errors"
	"fmt"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

var (
	// ErrInvalidDirection marks a settlement proposed against the direction
	// of the existing debt.
	ErrInvalidDirection = errors.New("settlement direction does not match debt")

	// ErrAmountExceedsBalance marks a settlement amount greater than the
	// outstanding debt, or a pair with nothing outstanding to settle.
	ErrAmountExceedsBalance = errors.New("settlement amount exceeds outstanding balance")
)

// Propose validates a settlement of amount from debtor to creditor.
// outstanding is the amount the debtor currently owes the creditor, i.e.
// PairwiseBalance(creditor, debtor). The returned settlement carries no ID,
// date or sequence number; the caller stamps those on commit.
func Propose(from, to string, amount, outstanding money.Money) (models.Settlement, error) {
	if outstanding.IsNegative() && !outstanding.IsZeroWithinEpsilon() {
		// The debt runs the other way: creditor and debtor are swapped.
		return models.Settlement{}, fmt.Errorf("%w: %s does not owe %s", ErrInvalidDirection, from, to)
	}
	if outstanding.IsZeroWithinEpsilon() {
		return models.Settlement{}, fmt.Errorf("%w: pair is settled up", ErrAmountExceedsBalance)
	}
	if !amount.IsPositive() || amount.IsZeroWithinEpsilon() {
		return models.Settlement{}, fmt.Errorf("%w: amount %s is below the minimum positive threshold", ErrAmountExceedsBalance, amount)
	}
	if amount.Sub(outstanding).MinorUnits() > money.EpsilonMinorUnits {
		return models.Settlement{}, fmt.Errorf("%w: %s paid, %s outstanding", ErrAmountExceedsBalance, amount, outstanding)
	}

	return models.Settlement{
		FromPersonID: from,
		ToPersonID:   to,
		Amount:       amount,
	}, nil
}

// Full builds a settlement sized to exactly zero out the pair's outstanding
// balance. After it is applied, PairwiseBalance for the pair is zero within
// epsilon; proposing another full settlement is then rejected.
func Full(from, to string, outstanding money.Money) (models.Settlement, error) {
	s, err := Propose(from, to, outstanding, outstanding)
	if err != nil {
		return models.Settlement{}, err
	}
	s.IsFullSettlement = true
	return s, nil
}

// Reverse returns the equal-and-opposite record that undoes a settlement on
// every balance. The ledger stays append-only: undo is a new record, not a
// deletion, so it survives restarts and reversing twice restores the
// original balances exactly.
func Reverse(s models.Settlement) models.Settlement {
	return models.Settlement{
		FromPersonID: s.ToPersonID,
		ToPersonID:   s.FromPersonID,
		Amount:       s.Amount,
		GroupID:      s.GroupID,
		Note:         ReversalNote(s.ID),
	}
}

// ReversalNote is the note Reverse stamps on a reversal record. It keys the
// reversal to the original settlement so a ledger scan can tell whether a
// settlement has already been undone.
func ReversalNote(settlementID string) string {
	return "undo of settlement " + settlementID
}
