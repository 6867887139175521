package bot

import (
	"fmt"
	"time"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// GenerateBalanceChart creates a pie chart of the viewer's open balances,
// one slice per counterparty. Returns PNG image as bytes.
func GenerateBalanceChart(lines []models.BalanceLine, nameOf func(int64) string, title string) ([]byte, error) {
	values, labels := balanceSlices(lines, nameOf)
	if len(values) == 0 {
		return nil, fmt.Errorf("no balances to chart")
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(labels),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// balanceSlices converts balance lines to pie values and legend labels.
// Settled lines are skipped.
func balanceSlices(lines []models.BalanceLine, nameOf func(int64) string) ([]float64, []string) {
	var values []float64
	var labels []string
	for _, l := range lines {
		var label string
		switch l.Direction {
		case models.DirectionYouOwe:
			label = "You owe " + nameOf(l.CounterpartyID)
		case models.DirectionOwesYou:
			label = nameOf(l.CounterpartyID) + " owes you"
		default:
			continue
		}
		values = append(values, l.Amount.InexactFloat64())
		labels = append(labels, label)
	}
	return values, labels
}

// generateChartFilename creates filename like "balance_2026-01-31.png".
func generateChartFilename(now time.Time) string {
	return fmt.Sprintf("balance_%s.png", now.Format("2006-01-02"))
}
