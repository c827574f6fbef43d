// Package ledger owns the canonical in-memory entry collection. All
// mutation goes through the Store; every mutation re-establishes the
// date-descending order invariant and writes the whole collection
// through to local storage.
package ledger

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"moneymap/internal/core"
	"moneymap/internal/storage"
)

// Store holds the entry list and its write-through persistence.
//
// Persistence failures never fail a mutation: the in-memory state stays
// authoritative for the session and the failure is logged.
type Store struct {
	mu      sync.Mutex
	kv      storage.KV
	entries []core.Entry
}

// UpdateFields carries a partial entry update. Nil fields are left
// untouched.
type UpdateFields struct {
	Amount   *float64   `json:"amount,omitempty"`
	Category *string    `json:"category,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	Note     *string    `json:"note,omitempty"`
	User     *string    `json:"user,omitempty"`
}

// New hydrates a store from local storage. Missing or corrupt data
// yields an empty collection, never an error. Hydration does not write
// back what it just read.
func New(kv storage.KV) *Store {
	s := &Store{kv: kv}

	raw, ok, err := kv.Get(storage.KeyEntries)
	if err != nil {
		slog.Warn("Unable to read entries from storage", "key", storage.KeyEntries, "error", err)
		return s
	}
	if !ok {
		return s
	}

	var entries []core.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		slog.Warn("Unable to parse stored entries, starting empty", "key", storage.KeyEntries, "error", err)
		return s
	}

	for i, e := range entries {
		entries[i] = core.Normalize(e)
	}
	core.SortEntries(entries)
	s.entries = entries

	return s
}

// Add synthesizes a full entry from the draft and inserts it. The
// amount is accepted as given; no validation happens here.
func (s *Store) Add(draft core.Draft) core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := core.NewEntry(draft)
	s.entries = append(s.entries, entry)
	core.SortEntries(s.entries)
	s.persistLocked()

	return entry
}

// Update merges the given fields into the entry with the given id,
// refreshing its updatedAt. An unknown id is silently ignored.
func (s *Store) Update(id string, fields UpdateFields) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		e := &s.entries[i]
		if fields.Amount != nil {
			e.Amount = *fields.Amount
		}
		if fields.Category != nil {
			e.Category = *fields.Category
		}
		if fields.Date != nil {
			e.Date = *fields.Date
		}
		if fields.Note != nil {
			e.Note = *fields.Note
		}
		if fields.User != nil {
			e.User = *fields.User
		}
		e.UpdatedAt = time.Now().UTC()

		core.SortEntries(s.entries)
		s.persistLocked()
		return
	}
}

// Remove deletes the entry with the given id. Absent ids are a no-op,
// though the collection is still persisted.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	s.persistLocked()
}

// ReplaceAll discards the current collection in favor of the incoming
// set. This is the pull-from-remote path: incoming ids and timestamps
// are trusted as-is after normalization.
func (s *Store) ReplaceAll(incoming []core.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]core.Entry, len(incoming))
	for i, e := range incoming {
		entries[i] = core.Normalize(e)
	}
	core.SortEntries(entries)

	s.entries = entries
	s.persistLocked()
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (core.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return core.Entry{}, false
}

// Entries returns a snapshot copy of the collection.
func (s *Store) Entries() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats derives the aggregate statistics for the current collection,
// optionally restricted to entries dated at or after windowStart.
func (s *Store) Stats(windowStart *time.Time) core.Stats {
	return core.ComputeStats(s.Entries(), windowStart)
}

func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		slog.Warn("Unable to serialize entries", "error", err)
		return
	}
	if err := s.kv.Set(storage.KeyEntries, string(raw)); err != nil {
		slog.Warn("Unable to persist entries to storage", "key", storage.KeyEntries, "error", err)
	}
}
