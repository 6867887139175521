// Package ledger computes pairwise debts within a group from its expense and
// settlement history.
package ledger

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// MinorUnitPlaces is the number of decimal places in the smallest currency unit.
const MinorUnitPlaces = 2

var (
	// ShareSumTolerance is the allowed gap between an expense amount and the sum of its shares.
	ShareSumTolerance = decimal.RequireFromString("0.005")
	// SettledThreshold is the net amount below which a pair is considered settled.
	SettledThreshold = decimal.RequireFromString("0.01")
	// SettleTolerance is the allowed excess of a settlement over the owed amount.
	SettleTolerance = decimal.RequireFromString("0.001")
)

// SplitEqually divides total among participants in order. Every participant
// gets total/N truncated to the minor unit and the last one absorbs the
// remainder, so the shares always sum to total exactly.
func SplitEqually(total decimal.Decimal, participants []int64) ([]models.ExpenseShare, error) {
	if !total.IsPositive() {
		return nil, invalid("amount", "amount must be greater than zero")
	}
	if len(participants) == 0 {
		return nil, invalid("participants", "at least one participant is required")
	}

	seen := make(map[int64]struct{}, len(participants))
	for _, id := range participants {
		if _, dup := seen[id]; dup {
			return nil, invalid("participants", "participant %d listed more than once", id)
		}
		seen[id] = struct{}{}
	}

	total = total.Round(MinorUnitPlaces)
	n := decimal.NewFromInt(int64(len(participants)))
	base := total.Div(n).Truncate(MinorUnitPlaces)
	residual := total.Sub(base.Mul(n))

	shares := make([]models.ExpenseShare, len(participants))
	for i, id := range participants {
		shares[i] = models.ExpenseShare{ParticipantID: id, Amount: base}
	}
	last := len(shares) - 1
	shares[last].Amount = shares[last].Amount.Add(residual)

	return shares, nil
}

// ValidateShares checks that an expense can be trusted by the ledger.
func ValidateShares(e models.Expense) error {
	if ie := checkShares(e); ie != nil {
		return ie
	}
	return nil
}

func checkShares(e models.Expense) *IntegrityError {
	fail := func(reason string) *IntegrityError {
		return &IntegrityError{ExpenseID: e.ID, Number: e.GroupExpenseNumber, Reason: reason}
	}

	if !e.Amount.IsPositive() {
		return fail("amount must be positive")
	}
	if len(e.Shares) == 0 {
		return fail("expense has no participants")
	}

	sum := decimal.Zero
	for _, s := range e.Shares {
		if s.Amount.IsNegative() {
			return fail("share amount is negative")
		}
		sum = sum.Add(s.Amount)
	}
	if sum.Sub(e.Amount).Abs().GreaterThan(ShareSumTolerance) {
		return fail("shares sum to " + sum.StringFixed(MinorUnitPlaces) +
			" but the expense total is " + e.Amount.StringFixed(MinorUnitPlaces))
	}

	return nil
}
