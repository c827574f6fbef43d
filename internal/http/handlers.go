package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"moneymap/internal/core"
	"moneymap/internal/currency"
	"moneymap/internal/export"
	"moneymap/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type entriesResponse struct {
	Entries []core.Entry `json:"entries"`
	Total   int          `json:"total"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.Filter{
		Query:    q.Get("q"),
		Type:     q.Get("type"),
		Category: q.Get("category"),
		User:     q.Get("user"),
	}
	entries := filter.Apply(s.store.Entries())
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries, Total: len(entries)})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var draft core.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(draft.Category) == "" {
		writeError(w, http.StatusUnprocessableEntity, "category is required")
		return
	}

	entry := s.store.Add(draft)
	s.statsCache.Purge()
	s.logger.InfoContext(r.Context(), "entry added",
		"id", entry.ID, "category", entry.Category, "amount", entry.Amount)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Get(id); !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	var fields ledger.UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.store.Update(id, fields)
	s.statsCache.Purge()
	entry, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.store.Remove(id)
	s.statsCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// statsWindow maps an insights range to its start instant. A nil start
// means the whole ledger.
func statsWindow(rng string, now time.Time) (*time.Time, bool) {
	now = now.UTC()
	var start time.Time
	switch rng {
	case "", "all":
		return nil, true
	case "1m":
		start = now.AddDate(0, -1, 0)
	case "3m":
		start = now.AddDate(0, -3, 0)
	case "6m":
		start = now.AddDate(0, -6, 0)
	case "ytd":
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return nil, false
	}
	return &start, true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "all"
	}
	windowStart, ok := statsWindow(rng, time.Now())
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown range: "+rng)
		return
	}

	if stats, hit := s.statsCache.Get(rng); hit {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	// collapse concurrent rebuilds of the same range
	v, _, _ := s.statsGroup.Do(rng, func() (any, error) {
		stats := s.store.Stats(windowStart)
		s.statsCache.Set(rng, stats)
		return stats, nil
	})
	writeJSON(w, http.StatusOK, v.(core.Stats))
}

type categoryResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
	Type  string `json:"type"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]categoryResponse, 0, len(core.Categories))
	for key, meta := range core.Categories {
		out = append(out, categoryResponse{
			Key:   key,
			Label: meta.Label,
			Color: meta.Color,
			Type:  string(meta.Type),
		})
	}
	// deterministic order for clients
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	writeJSON(w, http.StatusOK, out)
}

// handleUsers lists the configured household members plus any names
// already present on entries, so older data stays assignable.
func (s *Server) handleUsers(w http.ResponseWriter, _ *http.Request) {
	seen := make(map[string]bool, len(s.users))
	users := make([]string, 0, len(s.users))
	for _, u := range s.users {
		if !seen[u] {
			seen[u] = true
			users = append(users, u)
		}
	}
	for _, e := range s.store.Entries() {
		if e.User != "" && !seen[e.User] {
			seen[e.User] = true
			users = append(users, e.User)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"users": users})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.Filter{
		Query:    q.Get("q"),
		Type:     q.Get("type"),
		Category: q.Get("category"),
		User:     q.Get("user"),
	}
	entries := filter.Apply(s.store.Entries())
	code := s.currency.Get()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(time.Now())+`"`)
	if err := export.WriteCSV(w, entries, code); err != nil {
		s.logger.ErrorContext(r.Context(), "csv export failed", "error", err)
	}
}

type currencyResponse struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
}

func (s *Server) handleGetCurrency(w http.ResponseWriter, _ *http.Request) {
	code := s.currency.Get()
	writeJSON(w, http.StatusOK, currencyBody(code))
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	code, err := s.currency.Set(body.Code)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, currencyBody(code))
}

func currencyBody(code currency.Code) currencyResponse {
	for _, meta := range currency.Supported() {
		if meta.Code == code {
			return currencyResponse{Code: string(meta.Code), Symbol: meta.Symbol, Label: meta.Label}
		}
	}
	return currencyResponse{Code: string(code)}
}
