package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

// MemberBalance is one group member's balance against the viewing user,
// restricted to that group's ledger. Positive means the member owes the
// viewer.
type MemberBalance struct {
	PersonID    string
	DisplayName string
	Balance     money.Money
}

// pairKey identifies an unordered person pair; low < high lexicographically.
type pairKey struct {
	low, high string
}

// matrix holds net debts per pair. A positive value means high owes low.
type matrix map[pairKey]decimal.Decimal

// addDebt records that debtor owes creditor amount (negative to reduce).
func (m matrix) addDebt(debtor, creditor string, amount decimal.Decimal) {
	if creditor < debtor {
		m[pairKey{low: creditor, high: debtor}] = m[pairKey{low: creditor, high: debtor}].Add(amount)
	} else {
		m[pairKey{low: debtor, high: creditor}] = m[pairKey{low: debtor, high: creditor}].Sub(amount)
	}
}

// balance reads the net amount b owes a (positive) or a owes b (negative).
func (m matrix) balance(a, b string) decimal.Decimal {
	if a < b {
		return m[pairKey{low: a, high: b}]
	}
	return m[pairKey{low: b, high: a}].Neg()
}

// PairwiseBalance returns the net amount b owes a (positive) or a owes b
// (negative), netting every expense touching both and every settlement
// between them. PairwiseBalance(a, b) == −PairwiseBalance(b, a) holds by
// construction: both directions read the same matrix entry.
func PairwiseBalance(snap *models.Snapshot, a, b string) (money.Money, error) {
	if !snap.HasPerson(a) {
		return money.Zero(), fmt.Errorf("%w: person %s", ErrUnknownEntity, a)
	}
	if !snap.HasPerson(b) {
		return money.Zero(), fmt.Errorf("%w: person %s", ErrUnknownEntity, b)
	}
	if a == b {
		return money.Zero(), nil
	}
	m, err := buildMatrix(snap, nil, nil)
	if err != nil {
		return money.Zero(), err
	}
	return money.FromDecimal(m.balance(a, b)), nil
}

// PersonBalance returns the sum of p's pairwise balances over every
// counterparty with shared history. It sums the *rounded* pairwise values,
// so it always equals the sum a caller would get from PairwiseBalance.
func PersonBalance(snap *models.Snapshot, p string) (money.Money, error) {
	if !snap.HasPerson(p) {
		return money.Zero(), fmt.Errorf("%w: person %s", ErrUnknownEntity, p)
	}
	m, err := buildMatrix(snap, nil, nil)
	if err != nil {
		return money.Zero(), err
	}
	total := money.Zero()
	for key := range m {
		switch p {
		case key.low:
			total = total.Add(money.FromDecimal(m.balance(key.low, key.high)))
		case key.high:
			total = total.Add(money.FromDecimal(m.balance(key.high, key.low)))
		}
	}
	return total, nil
}

// GroupBalance returns the viewer's net position within one group: the sum
// of the viewer's pairwise balances against every other member, restricted
// to the group's expenses and group-tagged settlements. It equals the sum of
// MemberBalances for the same group and viewer.
func GroupBalance(snap *models.Snapshot, groupID, viewer string) (money.Money, error) {
	members, err := MemberBalances(snap, groupID, viewer)
	if err != nil {
		return money.Zero(), err
	}
	total := money.Zero()
	for _, mb := range members {
		total = total.Add(mb.Balance)
	}
	return total, nil
}

// MemberBalances returns each group member's balance against the viewer,
// restricted to the group's ledger, in the group's member order.
func MemberBalances(snap *models.Snapshot, groupID, viewer string) ([]MemberBalance, error) {
	group, ok := snap.Groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", ErrUnknownEntity, groupID)
	}
	if !snap.HasPerson(viewer) {
		return nil, fmt.Errorf("%w: person %s", ErrUnknownEntity, viewer)
	}

	m, err := buildMatrix(snap,
		func(e models.Expense) bool { return e.GroupID == groupID },
		func(s models.Settlement) bool { return s.GroupID == groupID },
	)
	if err != nil {
		return nil, err
	}

	balances := make([]MemberBalance, 0, len(group.MemberIDs))
	for _, memberID := range group.MemberIDs {
		if memberID == viewer {
			continue
		}
		balances = append(balances, MemberBalance{
			PersonID:    memberID,
			DisplayName: snap.Persons[memberID].DisplayName,
			Balance:     money.FromDecimal(m.balance(viewer, memberID)),
		})
	}
	return balances, nil
}

// MembersWhoOweViewer filters MemberBalances down to unarchived members with
// a positive, non-settled balance toward the viewer. Settlement is offered
// per member, so a member can be settled with even when the group nets to
// zero overall.
func MembersWhoOweViewer(snap *models.Snapshot, groupID, viewer string) ([]MemberBalance, error) {
	all, err := MemberBalances(snap, groupID, viewer)
	if err != nil {
		return nil, err
	}
	var owing []MemberBalance
	for _, mb := range all {
		if snap.Persons[mb.PersonID].Archived {
			continue
		}
		if mb.Balance.IsPositive() && !mb.Balance.IsZeroWithinEpsilon() {
			owing = append(owing, mb)
		}
	}
	return owing, nil
}

// buildMatrix validates the snapshot and accumulates net pairwise debts from
// the expenses and settlements accepted by the filters (nil means all).
// Validation always covers the whole snapshot: a corrupt entry is reported
// even when a filter would have excluded it.
func buildMatrix(snap *models.Snapshot, expenseFilter func(models.Expense) bool, settlementFilter func(models.Settlement) bool) (matrix, error) {
	if err := ValidateSnapshot(snap); err != nil {
		return nil, err
	}

	splits := snap.SplitsByExpense()
	payers := snap.PayersByExpense()
	m := make(matrix)

	for _, exp := range snap.Expenses {
		if expenseFilter != nil && !expenseFilter(exp) {
			continue
		}
		accumulateExpense(m, exp, payers[exp.ID], splits[exp.ID])
	}

	for _, s := range snap.Settlements {
		if settlementFilter != nil && !settlementFilter(s) {
			continue
		}
		// A settlement from F to T reduces F's debt to T.
		m.addDebt(s.FromPersonID, s.ToPersonID, s.Amount.Decimal().Neg())
	}

	return m, nil
}

// accumulateExpense attributes one expense's debts pairwise. Each
// participant's net is what they paid minus what they owe; a self-split by a
// payer simply cancels. Every debtor's deficit is distributed across the
// creditors in proportion to each creditor's positive net, which keeps the
// per-person totals exact and the matrix symmetric.
func accumulateExpense(m matrix, exp models.Expense, payers []models.PayerShare, splits []models.Split) {
	nets := make(map[string]decimal.Decimal)
	for _, p := range payers {
		nets[p.PersonID] = nets[p.PersonID].Add(p.AmountPaid.Decimal())
	}
	for _, s := range splits {
		nets[s.OwedBy] = nets[s.OwedBy].Sub(s.Amount.Decimal())
	}

	var creditors, debtors []string
	totalCredit := decimal.Zero
	for id, net := range nets {
		switch {
		case net.IsPositive():
			creditors = append(creditors, id)
			totalCredit = totalCredit.Add(net)
		case net.IsNegative():
			debtors = append(debtors, id)
		}
	}
	if len(creditors) == 0 || len(debtors) == 0 {
		return
	}
	// Map iteration order must not leak into decimal division error, so fix
	// the order before attributing.
	sort.Strings(creditors)
	sort.Strings(debtors)

	for _, d := range debtors {
		deficit := nets[d].Neg()
		for _, c := range creditors {
			owed := deficit.Mul(nets[c]).Div(totalCredit)
			m.addDebt(d, c, owed)
		}
	}
}

// ValidateSnapshot checks the referential and arithmetic integrity of a
// snapshot: every split, payer share and settlement resolves to known
// entities, every expense has participants and a positive amount, and split
// and payer totals reconcile with the expense amount within the rounding
// tolerance. Errors wrap the package sentinels and name the offending record.
func ValidateSnapshot(snap *models.Snapshot) error {
	splits := snap.SplitsByExpense()
	payers := snap.PayersByExpense()

	known := make(map[string]bool, len(snap.Expenses))
	for _, exp := range snap.Expenses {
		known[exp.ID] = true

		if !exp.Amount.IsPositive() {
			return fmt.Errorf("%w: expense %s has amount %s", ErrDegenerateExpense, exp.ID, exp.Amount)
		}
		if exp.GroupID != "" {
			if _, ok := snap.Groups[exp.GroupID]; !ok {
				return fmt.Errorf("%w: expense %s references group %s", ErrUnknownEntity, exp.ID, exp.GroupID)
			}
		}

		expSplits := splits[exp.ID]
		if len(expSplits) == 0 {
			return fmt.Errorf("%w: expense %s has no splits", ErrDegenerateExpense, exp.ID)
		}
		seen := make(map[string]bool, len(expSplits))
		splitSum := money.Zero()
		for _, sp := range expSplits {
			if !snap.HasPerson(sp.OwedBy) {
				return fmt.Errorf("%w: split of expense %s references person %s", ErrUnknownEntity, exp.ID, sp.OwedBy)
			}
			if seen[sp.OwedBy] {
				return fmt.Errorf("%w: expense %s has two splits owed by %s", ErrInvalidExpense, exp.ID, sp.OwedBy)
			}
			seen[sp.OwedBy] = true
			splitSum = splitSum.Add(sp.Amount)
		}
		if !splitSum.EqualsWithin(exp.Amount, money.SplitTolerance(len(expSplits))) {
			return fmt.Errorf("%w: expense %s splits sum to %s, want %s", ErrInvalidExpense, exp.ID, splitSum, exp.Amount)
		}

		expPayers := payers[exp.ID]
		if len(expPayers) == 0 {
			return fmt.Errorf("%w: expense %s has no payer shares", ErrInvalidExpense, exp.ID)
		}
		paidSum := money.Zero()
		for _, ps := range expPayers {
			if !snap.HasPerson(ps.PersonID) {
				return fmt.Errorf("%w: payer share of expense %s references person %s", ErrUnknownEntity, exp.ID, ps.PersonID)
			}
			paidSum = paidSum.Add(ps.AmountPaid)
		}
		if !paidSum.EqualsWithin(exp.Amount, money.SplitTolerance(len(expPayers))) {
			return fmt.Errorf("%w: expense %s payer shares sum to %s, want %s", ErrInvalidExpense, exp.ID, paidSum, exp.Amount)
		}
	}

	for _, sp := range snap.Splits {
		if !known[sp.ExpenseID] {
			return fmt.Errorf("%w: split references expense %s", ErrUnknownEntity, sp.ExpenseID)
		}
	}
	for _, ps := range snap.PayerShares {
		if !known[ps.ExpenseID] {
			return fmt.Errorf("%w: payer share references expense %s", ErrUnknownEntity, ps.ExpenseID)
		}
	}

	for _, s := range snap.Settlements {
		if !snap.HasPerson(s.FromPersonID) {
			return fmt.Errorf("%w: settlement %s references person %s", ErrUnknownEntity, s.ID, s.FromPersonID)
		}
		if !snap.HasPerson(s.ToPersonID) {
			return fmt.Errorf("%w: settlement %s references person %s", ErrUnknownEntity, s.ID, s.ToPersonID)
		}
		if s.FromPersonID == s.ToPersonID {
			return fmt.Errorf("%w: settlement %s pays its own sender", ErrInvalidExpense, s.ID)
		}
	}

	return nil
}
