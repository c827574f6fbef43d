package core

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	TypeIncome  CategoryType = "income"
	TypeExpense CategoryType = "expense"
)

type (
	CategoryType string

	// CategoryMeta is the static metadata attached to each category key.
	CategoryMeta struct {
		Label string
		Color string
		Type  CategoryType
	}

	// Entry is one income or expense record in the ledger.
	//
	// Amount is stored as a non-negative magnitude; direction is derived
	// from the category's type at aggregation time. Date is the
	// user-editable calendar timestamp, distinct from the audit pair
	// CreatedAt/UpdatedAt.
	Entry struct {
		ID        string    `json:"id"`
		Amount    float64   `json:"amount"`
		Category  string    `json:"category"`
		Date      time.Time `json:"date"`
		Note      string    `json:"note"`
		User      string    `json:"user,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// Draft carries the user-supplied fields of a new entry.
	Draft struct {
		Amount   float64   `json:"amount"`
		Category string    `json:"category"`
		Date     time.Time `json:"date"`
		Note     string    `json:"note"`
		User     string    `json:"user,omitempty"`
	}
)

// Categories maps every known category key to its static metadata.
// No free-form categories exist outside this table.
var Categories = map[string]CategoryMeta{
	"housing":        {Label: "Housing", Color: "#6366f1", Type: TypeExpense},
	"utilities":      {Label: "Utilities", Color: "#facc15", Type: TypeExpense},
	"food":           {Label: "Food & Dining", Color: "#f97316", Type: TypeExpense},
	"transportation": {Label: "Transportation", Color: "#22d3ee", Type: TypeExpense},
	"healthcare":     {Label: "Healthcare", Color: "#10b981", Type: TypeExpense},
	"entertainment":  {Label: "Entertainment", Color: "#ec4899", Type: TypeExpense},
	"travel":         {Label: "Travel", Color: "#9333ea", Type: TypeExpense},
	"savings":        {Label: "Savings & Investments", Color: "#14b8a6", Type: TypeExpense},
	"other":          {Label: "Other", Color: "#94a3b8", Type: TypeExpense},
	"salary":         {Label: "Income · Salary", Color: "#34d399", Type: TypeIncome},
	"freelance":      {Label: "Income · Freelance", Color: "#a3e635", Type: TypeIncome},
	"investments":    {Label: "Income · Investments", Color: "#38bdf8", Type: TypeIncome},
	"other_income":   {Label: "Income · Other", Color: "#cbd5e1", Type: TypeIncome},
}

// IsKnownCategory reports whether key is present in the category table.
func IsKnownCategory(key string) bool {
	_, ok := Categories[key]
	return ok
}

// CategoryLabel returns the display label for a category key. Unknown
// keys render as themselves.
func CategoryLabel(key string) string {
	if meta, ok := Categories[key]; ok {
		return meta.Label
	}
	return key
}

// IsIncomeCategory reports whether key carries the income type tag.
// Unknown keys count as expense, matching display behavior.
func IsIncomeCategory(key string) bool {
	return Categories[key].Type == TypeIncome
}

// NewEntry synthesizes a full entry from a draft: fresh id, audit
// timestamps set to now, date defaulted to now when the draft leaves it
// zero. The amount is taken as-is; no validation happens here.
func NewEntry(d Draft) Entry {
	now := time.Now().UTC()
	date := d.Date
	if date.IsZero() {
		date = now
	}
	return Entry{
		ID:        uuid.NewString(),
		Amount:    d.Amount,
		Category:  d.Category,
		Date:      date,
		Note:      d.Note,
		User:      d.User,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Normalize canonicalizes an entry coming from an external source
// (remote backup or stale on-device data): backfills a missing id, and
// fills absent audit timestamps from the entry date and now respectively.
func Normalize(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.Date
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	return e
}

// SortEntries orders entries by date descending. The sort is stable so
// same-date entries keep their insertion order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}
