package core

import "strings"

const (
	FilterAll        = "all"
	FilterUnassigned = "unassigned"
)

// Filter narrows an entry list for the activity view and for exports.
// Zero values ("" or "all") leave the corresponding dimension open.
type Filter struct {
	Query    string
	Type     string // "all", "income" or "expense"
	Category string // "all" or a category key
	User     string // "all", "unassigned" or a household member name
}

// Matches reports whether e passes every active dimension of the filter.
// The query matches case-insensitively against the note and the
// category's display label.
func (f Filter) Matches(e Entry) bool {
	if f.Type != "" && f.Type != FilterAll {
		isIncome := IsIncomeCategory(e.Category)
		if f.Type == string(TypeIncome) && !isIncome {
			return false
		}
		if f.Type == string(TypeExpense) && isIncome {
			return false
		}
	}

	if f.Category != "" && f.Category != FilterAll && e.Category != f.Category {
		return false
	}

	switch f.User {
	case "", FilterAll:
	case FilterUnassigned:
		if e.User != "" {
			return false
		}
	default:
		if e.User != f.User {
			return false
		}
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query != "" {
		note := strings.ToLower(e.Note)
		label := strings.ToLower(CategoryLabel(e.Category))
		return strings.Contains(note, query) || strings.Contains(label, query)
	}

	return true
}

// Apply returns the entries passing the filter, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
