package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

type edgeKey struct {
	debtor   int64
	creditor int64
}

// Graph is a directed debt graph. An edge debtor→creditor means the debtor
// owes the creditor its weight. Only positive weights are kept.
type Graph struct {
	edges map[edgeKey]decimal.Decimal
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{edges: make(map[edgeKey]decimal.Decimal)}
}

// Add increases the debt from debtor to creditor.
func (g *Graph) Add(debtor, creditor int64, amount decimal.Decimal) {
	if debtor == creditor || !amount.IsPositive() {
		return
	}
	k := edgeKey{debtor, creditor}
	g.edges[k] = g.edges[k].Add(amount)
}

// Reduce lowers the debt from debtor to creditor by amount, never below zero.
// It returns the part of amount that found no debt to discharge.
func (g *Graph) Reduce(debtor, creditor int64, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	k := edgeKey{debtor, creditor}
	current := g.edges[k]
	if amount.LessThan(current) {
		g.edges[k] = current.Sub(amount)
		return decimal.Zero
	}
	delete(g.edges, k)
	return amount.Sub(current)
}

// Owed returns what debtor owes creditor in that exact direction.
func (g *Graph) Owed(debtor, creditor int64) decimal.Decimal {
	return g.edges[edgeKey{debtor, creditor}]
}

// Canonicalize nets every pair so at most one direction remains positive.
func (g *Graph) Canonicalize() {
	for k, forward := range g.edges {
		rk := edgeKey{k.creditor, k.debtor}
		backward, ok := g.edges[rk]
		if !ok {
			continue
		}
		switch forward.Cmp(backward) {
		case 1:
			g.edges[k] = forward.Sub(backward)
			delete(g.edges, rk)
		case -1:
			g.edges[rk] = backward.Sub(forward)
			delete(g.edges, k)
		default:
			delete(g.edges, k)
			delete(g.edges, rk)
		}
	}
}

// Edges returns every positive edge ordered by debtor then creditor.
func (g *Graph) Edges() []models.DebtEdge {
	out := make([]models.DebtEdge, 0, len(g.edges))
	for k, amt := range g.edges {
		out = append(out, models.DebtEdge{DebtorID: k.debtor, CreditorID: k.creditor, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DebtorID != out[j].DebtorID {
			return out[i].DebtorID < out[j].DebtorID
		}
		return out[i].CreditorID < out[j].CreditorID
	})
	return out
}

// Len returns the number of positive edges.
func (g *Graph) Len() int {
	return len(g.edges)
}

// Clone returns an independent copy.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for k, v := range g.edges {
		c.edges[k] = v
	}
	return c
}
