package ledger

import "gitlab.com/yelinaung/split-bot/internal/models"

// ExpenseKind is the shape of an expense as far as debts are concerned.
type ExpenseKind int

const (
	// KindShared is the general case: participants owe the payer their shares.
	KindShared ExpenseKind = iota
	// KindDirectTransfer is a payment made entirely on behalf of one other
	// member. It repays what the payer owes that member.
	KindDirectTransfer
)

func (k ExpenseKind) String() string {
	switch k {
	case KindDirectTransfer:
		return "direct_transfer"
	default:
		return "shared"
	}
}

// Classify returns the expense's kind from its share list.
func Classify(e models.Expense) ExpenseKind {
	if len(e.Shares) == 1 && e.Shares[0].ParticipantID != e.PayerID {
		return KindDirectTransfer
	}
	return KindShared
}
