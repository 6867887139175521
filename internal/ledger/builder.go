package ledger

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// Reduction is a payment from one member to another that discharges debt in
// that direction. Direct transfers and settlements both become reductions.
type Reduction struct {
	FromID int64
	ToID   int64
	Amount decimal.Decimal
}

// Ledger is the result of scanning a group's expenses.
type Ledger struct {
	// Raw holds every obligation created by shared expenses.
	Raw *Graph
	// Reductions holds direct transfers, applied after all obligations.
	Reductions []Reduction
	// Issues lists expenses that were excluded.
	Issues []*IntegrityError
}

// BuildLedger turns expenses into raw obligations. Invalid expenses are
// excluded and reported in Issues.
func BuildLedger(expenses []models.Expense) *Ledger {
	l := &Ledger{Raw: NewGraph()}

	for _, e := range expenses {
		if ie := checkShares(e); ie != nil {
			l.Issues = append(l.Issues, ie)
			continue
		}

		switch Classify(e) {
		case KindDirectTransfer:
			s := e.Shares[0]
			l.Reductions = append(l.Reductions, Reduction{
				FromID: e.PayerID,
				ToID:   s.ParticipantID,
				Amount: s.Amount,
			})
		default:
			for _, s := range e.Shares {
				l.Raw.Add(s.ParticipantID, e.PayerID, s.Amount)
			}
		}
	}

	return l
}
