package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneymap/internal/core"
	"moneymap/internal/currency"
	"moneymap/internal/ledger"
	"moneymap/internal/log"
	"moneymap/internal/storage"
	"moneymap/internal/sync"
)

// stubSyncer records calls and plays back a scripted state.
type stubSyncer struct {
	state  sync.State
	pulled func()
}

func (s *stubSyncer) Snapshot() sync.State              { return s.state }
func (s *stubSyncer) Login(context.Context) sync.State  { return s.state }
func (s *stubSyncer) Logout(context.Context) sync.State { return s.state }
func (s *stubSyncer) Push(context.Context) sync.State   { return s.state }
func (s *stubSyncer) Pull(context.Context) sync.State {
	if s.pulled != nil {
		s.pulled()
	}
	return s.state
}
func (s *stubSyncer) ClearFeedback() sync.State { return s.state }

func newTestServer(t *testing.T) (*Server, *ledger.Store) {
	t.Helper()
	kv := storage.NewMemory()
	store := ledger.New(kv)
	logger := log.New(log.DefaultConfig())
	s := NewServer(":0", store, &stubSyncer{state: sync.State{Status: sync.StatusIdle}}, currency.NewService(kv), []string{"alex", "sam"}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, store
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz", nil).Code)
}

func TestCreateAndListEntries(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/entries", core.Draft{
		Amount: 45.20, Category: "food", Note: "lunch",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created core.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 45.20, created.Amount)

	rec = do(t, s, http.MethodGet, "/api/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list entriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, created.ID, list.Entries[0].ID)
}

func TestCreateEntry_RequiresCategory(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/entries", core.Draft{Amount: 10})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListEntries_AppliesFilters(t *testing.T) {
	s, store := newTestServer(t)
	store.Add(core.Draft{Amount: 10, Category: "food", Note: "groceries"})
	store.Add(core.Draft{Amount: 2000, Category: "salary"})
	store.Add(core.Draft{Amount: 30, Category: "travel", User: "alex"})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "all", target: "/api/entries", want: 3},
		{name: "income only", target: "/api/entries?type=income", want: 1},
		{name: "by category", target: "/api/entries?category=food", want: 1},
		{name: "by user", target: "/api/entries?user=alex", want: 1},
		{name: "unassigned", target: "/api/entries?user=unassigned", want: 2},
		{name: "query on note", target: "/api/entries?q=grocer", want: 1},
		{name: "query on label", target: "/api/entries?q=dining", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var list entriesResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
			assert.Equal(t, tt.want, list.Total)
		})
	}
}

func TestUpdateEntry(t *testing.T) {
	s, store := newTestServer(t)
	entry := store.Add(core.Draft{Amount: 10, Category: "food"})

	rec := do(t, s, http.MethodPatch, "/api/entries/"+entry.ID, map[string]any{
		"amount": 12.5,
		"note":   "corrected",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var updated core.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 12.5, updated.Amount)
	assert.Equal(t, "corrected", updated.Note)
	assert.Equal(t, "food", updated.Category, "untouched fields survive")
}

func TestUpdateEntry_UnknownID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPatch, "/api/entries/nope", map[string]any{"amount": 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEntry(t *testing.T) {
	s, store := newTestServer(t)
	entry := store.Add(core.Draft{Amount: 10, Category: "food"})

	rec := do(t, s, http.MethodDelete, "/api/entries/"+entry.ID, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, store.Len())
}

func TestStats(t *testing.T) {
	s, store := newTestServer(t)
	store.Add(core.Draft{Amount: 2000, Category: "salary"})
	store.Add(core.Draft{Amount: 45.20, Category: "food"})

	rec := do(t, s, http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats core.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.InDelta(t, 2045.20, stats.Total, 0.001)
	assert.InDelta(t, 2000, stats.IncomeTotal, 0.001)
	assert.InDelta(t, 45.20, stats.ExpenseTotal, 0.001)
	assert.Contains(t, stats.ByCategory, "housing", "every category key is present")
}

func TestStats_UnknownRange(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/stats?range=2w", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats_CacheInvalidatedByWrite(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var before core.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	require.Zero(t, before.Total)

	require.Equal(t, http.StatusCreated,
		do(t, s, http.MethodPost, "/api/entries", core.Draft{Amount: 10, Category: "food"}).Code)

	rec = do(t, s, http.MethodGet, "/api/stats", nil)
	var after core.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.InDelta(t, 10, after.Total, 0.001, "a write must not serve stale aggregates")
}

func TestStatsWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	start, ok := statsWindow("ytd", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *start)

	start, ok = statsWindow("3m", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), *start)

	start, ok = statsWindow("all", now)
	require.True(t, ok)
	assert.Nil(t, start)

	_, ok = statsWindow("forever", now)
	assert.False(t, ok)
}

func TestCategories(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/categories", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var cats []categoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	require.Len(t, cats, len(core.Categories))
	for i := 1; i < len(cats); i++ {
		assert.Less(t, cats[i-1].Key, cats[i].Key, "categories come sorted")
	}
}

func TestUsers_MergesConfiguredAndSeen(t *testing.T) {
	s, store := newTestServer(t)
	store.Add(core.Draft{Amount: 5, Category: "food", User: "jo"})

	rec := do(t, s, http.MethodGet, "/api/users", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Users []string `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"alex", "sam", "jo"}, body.Users)
}

func TestExportCSV(t *testing.T) {
	s, store := newTestServer(t)
	store.Add(core.Draft{Amount: 45.20, Category: "food", Note: "lunch"})

	rec := do(t, s, http.MethodGet, "/api/export", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "money-map-activity-")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "Date,Category,Type,Amount,Currency"), body)
	assert.Contains(t, body, "-45.20,GBP,lunch")
}

func TestCurrencyRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/currency", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got currencyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "GBP", got.Code)
	assert.Equal(t, "£", got.Symbol)

	rec = do(t, s, http.MethodPut, "/api/currency", map[string]string{"code": "EUR"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/currency", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "EUR", got.Code)
}

func TestCurrency_RejectsUnsupported(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/currency", map[string]string{"code": "USD"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSyncStatus(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/sync", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var state sync.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, sync.StatusIdle, state.Status)
}

func TestSyncPull_PurgesStatsCache(t *testing.T) {
	kv := storage.NewMemory()
	store := ledger.New(kv)
	logger := log.New(log.DefaultConfig())
	syncer := &stubSyncer{state: sync.State{Status: sync.StatusSuccess}}
	syncer.pulled = func() {
		store.ReplaceAll([]core.Entry{{ID: "r1", Amount: 99, Category: "food", Date: time.Now()}})
	}
	s := NewServer(":0", store, syncer, currency.NewService(kv), nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	// warm the cache with empty stats
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/stats", nil).Code)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/sync/pull", nil).Code)

	rec := do(t, s, http.MethodGet, "/api/stats", nil)
	var stats core.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.InDelta(t, 99, stats.Total, 0.001)
}

func TestMiddleware_SetsSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/entries", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		require.True(t, rl.allow("10.0.0.1"), "request %d should pass", i)
	}
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "limits are per client")
}

func TestRateLimit_AppliesToMutations(t *testing.T) {
	s, _ := newTestServer(t)

	limited := false
	for i := 0; i < 70; i++ {
		rec := do(t, s, http.MethodPost, "/api/entries", core.Draft{Amount: 1, Category: "food"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			break
		}
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.True(t, limited, "sustained writes from one client must be limited")
}
