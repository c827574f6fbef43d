package core

import (
	"testing"
	"time"
)

func TestNewEntry(t *testing.T) {
	draft := Draft{Amount: 12.5, Category: "food", Note: "lunch"}
	e := NewEntry(draft)

	if e.ID == "" {
		t.Fatal("expected a generated id")
	}
	if e.Amount != 12.5 || e.Category != "food" || e.Note != "lunch" {
		t.Errorf("draft fields not carried over: %+v", e)
	}
	if e.Date.IsZero() || e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Error("expected date and audit timestamps to be set")
	}
}

func TestNewEntry_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		e := NewEntry(Draft{Category: "other"})
		if seen[e.ID] {
			t.Fatalf("duplicate id generated: %s", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestNormalize_BackfillsMissingFields(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	e := Normalize(Entry{Amount: 10, Category: "food", Date: date})

	if e.ID == "" {
		t.Error("expected id backfill")
	}
	if !e.CreatedAt.Equal(date) {
		t.Errorf("createdAt should default to the entry date, got %v", e.CreatedAt)
	}
	if e.UpdatedAt.IsZero() {
		t.Error("expected updatedAt backfill")
	}
}

func TestNormalize_TrustsExistingFields(t *testing.T) {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	in := Entry{ID: "abc", Category: "travel", Date: created, CreatedAt: created, UpdatedAt: updated}

	out := Normalize(in)
	if out.ID != "abc" || !out.CreatedAt.Equal(created) || !out.UpdatedAt.Equal(updated) {
		t.Errorf("existing fields must be trusted as-is, got %+v", out)
	}
}

func TestSortEntries_DateDescendingStable(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "a", Date: d1},
		{ID: "b", Date: d2},
		{ID: "c", Date: d1},
	}

	SortEntries(entries)

	got := []string{entries[0].ID, entries[1].ID, entries[2].ID}
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v, want %v", i, got, want)
		}
	}
}

func TestCategoryTable(t *testing.T) {
	if !IsKnownCategory("food") || IsKnownCategory("made-up") {
		t.Error("category lookups broken")
	}
	if !IsIncomeCategory("salary") {
		t.Error("salary should be income")
	}
	if IsIncomeCategory("food") || IsIncomeCategory("missing") {
		t.Error("expense and unknown keys must not count as income")
	}
	for key, meta := range Categories {
		if meta.Label == "" || meta.Color == "" {
			t.Errorf("category %s missing metadata", key)
		}
		if meta.Type != TypeIncome && meta.Type != TypeExpense {
			t.Errorf("category %s has invalid type %q", key, meta.Type)
		}
	}
}
