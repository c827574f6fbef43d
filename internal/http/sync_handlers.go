package http

import (
	"net/http"

	"moneymap/internal/sync"
)

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.syncer.Snapshot())
}

func (s *Server) handleSyncLogin(w http.ResponseWriter, r *http.Request) {
	s.writeSyncState(w, s.syncer.Login(r.Context()))
}

func (s *Server) handleSyncLogout(w http.ResponseWriter, r *http.Request) {
	s.writeSyncState(w, s.syncer.Logout(r.Context()))
}

func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	s.writeSyncState(w, s.syncer.Push(r.Context()))
}

func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	state := s.syncer.Pull(r.Context())
	if state.Status == sync.StatusSuccess {
		// the pull replaced the ledger, derived aggregates are stale
		s.statsCache.Purge()
	}
	s.writeSyncState(w, state)
}

func (s *Server) handleSyncDismiss(w http.ResponseWriter, _ *http.Request) {
	s.writeSyncState(w, s.syncer.ClearFeedback())
}

// writeSyncState always answers 200; sync outcomes are conveyed in the
// state payload, not the transport status.
func (s *Server) writeSyncState(w http.ResponseWriter, state sync.State) {
	writeJSON(w, http.StatusOK, state)
}
