// Package export renders the ledger as downloadable activity files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"moneymap/internal/core"
	"moneymap/internal/currency"
)

var csvHeader = []string{
	"Date",
	"Category",
	"Type",
	"Amount",
	"Currency",
	"Note",
	"Created At",
	"Updated At",
	"Entry ID",
}

// FileName builds the download name for an export taken now.
func FileName(now time.Time) string {
	return fmt.Sprintf("money-map-activity-%s.csv", now.UTC().Format("2006-01-02T15-04-05"))
}

// WriteCSV streams the entries as CSV. Amounts are signed by entry
// type so the column sums to the net position.
func WriteCSV(w io.Writer, entries []core.Entry, code currency.Code) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, entry := range entries {
		kind := "Expense"
		amount := -entry.Amount
		if core.IsIncomeCategory(entry.Category) {
			kind = "Income"
			amount = entry.Amount
		}
		record := []string{
			entry.Date.UTC().Format("2006-01-02"),
			core.CategoryLabel(entry.Category),
			kind,
			strconv.FormatFloat(amount, 'f', 2, 64),
			string(code),
			entry.Note,
			formatTimestamp(entry.CreatedAt),
			formatTimestamp(entry.UpdatedAt),
			entry.ID,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
