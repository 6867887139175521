package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// Overpayment is the part of a pair's payments that exceeded its debt.
// It never becomes a reverse debt. Payments are summed per direction across
// the whole history, so an overpayment is absorbed by debt in the same
// direction that appears later.
type Overpayment struct {
	FromID int64
	ToID   int64
	Amount decimal.Decimal
}

// ApplySettlements folds the ledger's direct transfers and the given
// settlements into a copy of its raw graph and canonicalizes the result.
// Reductions are summed per direction before clamping, so the order of
// settlements never changes the outcome.
func ApplySettlements(l *Ledger, settlements []models.Settlement) (*Graph, []Overpayment) {
	g := l.Raw.Clone()

	paid := make(map[edgeKey]decimal.Decimal)
	for _, r := range l.Reductions {
		k := edgeKey{r.FromID, r.ToID}
		paid[k] = paid[k].Add(r.Amount)
	}
	for _, s := range settlements {
		k := edgeKey{s.FromID, s.ToID}
		paid[k] = paid[k].Add(s.Amount)
	}

	var over []Overpayment
	for k, amount := range paid {
		if k.debtor == k.creditor {
			continue
		}
		if excess := g.Reduce(k.debtor, k.creditor, amount); excess.IsPositive() {
			over = append(over, Overpayment{FromID: k.debtor, ToID: k.creditor, Amount: excess})
		}
	}
	sort.Slice(over, func(i, j int) bool {
		if over[i].FromID != over[j].FromID {
			return over[i].FromID < over[j].FromID
		}
		return over[i].ToID < over[j].ToID
	})

	g.Canonicalize()
	return g, over
}
