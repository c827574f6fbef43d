// Package http exposes the ledger, statistics, and Drive sync over a
// JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	"moneymap/internal/cache"
	"moneymap/internal/core"
	"moneymap/internal/currency"
	"moneymap/internal/ledger"
	"moneymap/internal/log"
	"moneymap/internal/sync"
)

// Syncer is the sync surface the handlers drive.
type Syncer interface {
	Snapshot() sync.State
	Login(ctx context.Context) sync.State
	Logout(ctx context.Context) sync.State
	Push(ctx context.Context) sync.State
	Pull(ctx context.Context) sync.State
	ClearFeedback() sync.State
}

type Server struct {
	http.Server
	store    *ledger.Store
	syncer   Syncer
	currency *currency.Service
	users    []string
	logger   *log.Logger

	rateLimiter *rateLimiter

	// derived statistics are cached per range and rebuilt at most once
	// concurrently per key
	statsCache *cache.TTLCache[core.Stats]
	statsGroup singleflight.Group
	cacheMgr   *cache.Manager

	shutdownOnce gosync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run
// server. users is the configured household member list offered for
// entry assignment; it may be empty.
func NewServer(addr string, store *ledger.Store, syncer Syncer, cur *currency.Service, users []string, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       store,
		syncer:      syncer,
		currency:    cur,
		users:       users,
		logger:      httpLogger,
		rateLimiter: newRateLimiter(),
		statsCache:  cache.NewTTLCache[core.Stats](16, 5*time.Minute),
		cacheMgr:    cache.NewManager(logger),
	}
	s.cacheMgr.Register(s.statsCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/entries", s.withMiddleware(s.handleListEntries))
	mux.HandleFunc("POST /api/entries", s.withMiddleware(s.handleCreateEntry))
	mux.HandleFunc("PATCH /api/entries/{id}", s.withMiddleware(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /api/entries/{id}", s.withMiddleware(s.handleDeleteEntry))

	mux.HandleFunc("GET /api/stats", s.withMiddleware(s.handleStats))
	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("GET /api/users", s.withMiddleware(s.handleUsers))
	mux.HandleFunc("GET /api/export", s.withMiddleware(s.handleExport))

	mux.HandleFunc("GET /api/currency", s.withMiddleware(s.handleGetCurrency))
	mux.HandleFunc("PUT /api/currency", s.withMiddleware(s.handleSetCurrency))

	mux.HandleFunc("GET /api/sync", s.withMiddleware(s.handleSyncStatus))
	mux.HandleFunc("POST /api/sync/login", s.withMiddleware(s.handleSyncLogin))
	mux.HandleFunc("POST /api/sync/logout", s.withMiddleware(s.handleSyncLogout))
	mux.HandleFunc("POST /api/sync/push", s.withMiddleware(s.handleSyncPush))
	mux.HandleFunc("POST /api/sync/pull", s.withMiddleware(s.handleSyncPull))
	mux.HandleFunc("POST /api/sync/dismiss", s.withMiddleware(s.handleSyncDismiss))

	return s
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// rateLimiter is a small per-client in-memory limiter applied to
// mutating requests.
type rateLimiter struct {
	mu           gosync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce gosync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes clients silent for over 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	// counter resets after a quiet minute
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

type contextKey string

const requestIDKey contextKey = "request_id"

// withMiddleware adds security headers, rate limiting, and request
// logging around a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.logger.DebugContext(ctx, "request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
