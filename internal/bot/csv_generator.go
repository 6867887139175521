package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// GenerateSharesCSV writes one row per expense share. Expenses without
// shares get a single row with empty participant columns so that broken
// records stay visible.
func GenerateSharesCSV(expenses []models.Expense, nameOf func(int64) string, currency string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"Expense", "Date", "Payer", "Description", "Total", "Kind", "Participant", "Share", "Currency"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range expenses {
		e := &expenses[i]
		base := []string{
			strconv.FormatInt(e.GroupExpenseNumber, 10),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			nameOf(e.PayerID),
			e.Description,
			e.Amount.StringFixed(ledger.MinorUnitPlaces),
			ledger.Classify(*e).String(),
		}

		if len(e.Shares) == 0 {
			if err := writer.Write(append(base, "", "", currency)); err != nil {
				return nil, fmt.Errorf("failed to write CSV row: %w", err)
			}
			continue
		}

		for _, s := range e.Shares {
			row := append(append([]string{}, base...),
				nameOf(s.ParticipantID),
				s.Amount.StringFixed(ledger.MinorUnitPlaces),
				currency,
			)
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// generateReportFilename creates filename like "expenses_2026-01-31.csv".
func generateReportFilename(now time.Time) string {
	return fmt.Sprintf("expenses_%s.csv", now.Format("2006-01-02"))
}
