package core

import (
	"sort"
	"time"
)

type (
	// MonthTotal is the summed amount of all entries falling in one
	// calendar month. Month is the first instant of that month in UTC.
	MonthTotal struct {
		Month time.Time `json:"month"`
		Total float64   `json:"total"`
	}

	// Stats is the full set of aggregates derived from an entry list.
	Stats struct {
		Total         float64            `json:"total"`
		ByCategory    map[string]float64 `json:"byCategory"`
		MonthlyTotals []MonthTotal       `json:"monthlyTotals"`
		IncomeTotal   float64            `json:"incomeTotal"`
		ExpenseTotal  float64            `json:"expenseTotal"`
	}
)

// startOfMonth truncates t to the first instant of its calendar month in UTC.
func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ComputeStats derives aggregates from the given entries. When
// windowStart is non-nil, entries dated before it are excluded.
//
// Every key of the category table is present in ByCategory even with no
// matching entries. MonthlyTotals is ordered ascending by month. The
// derivation is pure: no side effects, no memory of previous calls, and
// an empty input yields zeroes rather than an error.
func ComputeStats(entries []Entry, windowStart *time.Time) Stats {
	byCategory := make(map[string]float64, len(Categories))
	for key := range Categories {
		byCategory[key] = 0
	}

	monthly := make(map[time.Time]float64)
	stats := Stats{ByCategory: byCategory, MonthlyTotals: []MonthTotal{}}

	for _, e := range entries {
		if windowStart != nil && e.Date.Before(*windowStart) {
			continue
		}
		stats.Total += e.Amount
		byCategory[e.Category] += e.Amount
		monthly[startOfMonth(e.Date)] += e.Amount

		if IsIncomeCategory(e.Category) {
			stats.IncomeTotal += e.Amount
		} else {
			stats.ExpenseTotal += e.Amount
		}
	}

	for month, total := range monthly {
		stats.MonthlyTotals = append(stats.MonthlyTotals, MonthTotal{Month: month, Total: total})
	}
	sort.Slice(stats.MonthlyTotals, func(i, j int) bool {
		return stats.MonthlyTotals[i].Month.Before(stats.MonthlyTotals[j].Month)
	})

	return stats
}
