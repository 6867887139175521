package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// Summary totals a viewer's balance lines.
type Summary struct {
	TotalYouOwe    decimal.Decimal
	TotalOwedToYou decimal.Decimal
	// Net is positive when the viewer is owed money overall.
	Net       decimal.Decimal
	Direction models.Direction
}

// Project returns the viewer's position with every counterparty, ordered by
// counterparty id. Pairs below SettledThreshold are omitted.
func Project(g *Graph, viewerID int64) []models.BalanceLine {
	lines := make([]models.BalanceLine, 0)
	for _, e := range g.Edges() {
		if e.Amount.LessThan(SettledThreshold) {
			continue
		}
		switch viewerID {
		case e.DebtorID:
			lines = append(lines, models.BalanceLine{
				CounterpartyID: e.CreditorID,
				Amount:         e.Amount,
				Direction:      models.DirectionYouOwe,
			})
		case e.CreditorID:
			lines = append(lines, models.BalanceLine{
				CounterpartyID: e.DebtorID,
				Amount:         e.Amount,
				Direction:      models.DirectionOwesYou,
			})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].CounterpartyID < lines[j].CounterpartyID
	})
	return lines
}

// Owed returns what from currently owes to, in that exact direction.
func Owed(g *Graph, fromID, toID int64) decimal.Decimal {
	return g.Owed(fromID, toID)
}

// Summarize totals balance lines.
func Summarize(lines []models.BalanceLine) Summary {
	s := Summary{TotalYouOwe: decimal.Zero, TotalOwedToYou: decimal.Zero}
	for _, l := range lines {
		switch l.Direction {
		case models.DirectionYouOwe:
			s.TotalYouOwe = s.TotalYouOwe.Add(l.Amount)
		case models.DirectionOwesYou:
			s.TotalOwedToYou = s.TotalOwedToYou.Add(l.Amount)
		}
	}
	s.Net = s.TotalOwedToYou.Sub(s.TotalYouOwe)

	switch {
	case s.Net.Abs().LessThan(SettledThreshold):
		s.Direction = models.DirectionSettled
	case s.Net.IsPositive():
		s.Direction = models.DirectionOwesYou
	default:
		s.Direction = models.DirectionYouOwe
	}
	return s
}
