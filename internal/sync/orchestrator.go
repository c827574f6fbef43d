package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"moneymap/internal/drive"
	"moneymap/internal/ledger"
	"moneymap/internal/log"
	"moneymap/internal/storage"
)

// Status describes the orchestrator's current relationship to Drive.
type Status string

const (
	StatusDisabled       Status = "disabled"
	StatusIdle           Status = "idle"
	StatusAuthenticating Status = "authenticating"
	StatusSyncing        Status = "syncing"
	StatusSuccess        Status = "success"
	StatusError          Status = "error"
)

const (
	msgTokenMissing = "Access token missing. Connect Google Drive again."
	msgPushSuccess  = "Backup saved to Google Drive."
	msgPullSuccess  = "Latest backup loaded from Google Drive."
	msgConnected    = "Google Drive connected."
)

// Backup is the subset of the Drive client the orchestrator drives.
type Backup interface {
	FileName() string
	EnsureFile(ctx context.Context, token, fileID, name string) (string, error)
	Upload(ctx context.Context, token, fileID string, payload drive.BackupPayload) (drive.UploadResult, error)
	Download(ctx context.Context, token, fileID string) (drive.BackupPayload, error)
}

// AuthProvider yields a bearer token for Drive requests.
type AuthProvider interface {
	Authorize(ctx context.Context) (string, error)
}

// State is a point-in-time snapshot of the orchestrator, safe to hand
// to callers after the lock is released. Message and Error are
// dismissable feedback carried alongside the status, not part of it: a
// precondition failure can set Error while the status stays idle.
type State struct {
	Status       Status    `json:"status"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	FileID       string    `json:"fileId,omitempty"`
	LastSyncedAt time.Time `json:"lastSyncedAt,omitempty"`
	Connected    bool      `json:"connected"`
}

// Orchestrator runs the whole-document backup protocol against Drive
// and keeps local sync state in the persistence adapter.
type Orchestrator struct {
	mu     gosync.Mutex
	status Status
	msg    string
	errMsg string
	token  string
	meta   Metadata

	store  *ledger.Store
	kv     storage.KV
	client Backup
	auth   AuthProvider
	logger *log.Logger
	now    func() time.Time
}

// New builds an orchestrator. A nil client or auth provider marks sync
// permanently disabled; every operation then fails fast.
func New(store *ledger.Store, kv storage.KV, client Backup, auth AuthProvider, logger *log.Logger) *Orchestrator {
	o := &Orchestrator{
		status: StatusIdle,
		store:  store,
		kv:     kv,
		client: client,
		auth:   auth,
		logger: logger.WithComponent(log.ComponentSync),
		now:    time.Now,
	}
	if client == nil || auth == nil {
		o.status = StatusDisabled
		return o
	}
	o.meta = loadMetadata(kv)
	if o.meta.FileID != "" {
		o.logger.Debug("restored drive binding", "file_id", o.meta.FileID)
	}
	return o
}

// Snapshot returns the current sync state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Login acquires a bearer token through the auth provider and settles
// back to idle. Failures land in the error state rather than
// propagating.
func (o *Orchestrator) Login(ctx context.Context) State {
	o.mu.Lock()
	if o.status == StatusDisabled || o.busyLocked() {
		defer o.mu.Unlock()
		return o.snapshotLocked()
	}
	o.status = StatusAuthenticating
	o.msg, o.errMsg = "", ""
	o.mu.Unlock()

	token, err := o.auth.Authorize(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.logger.WarnContext(ctx, "authorization failed", "op", log.OpLogin, "error", err)
		o.failLocked(err)
		return o.snapshotLocked()
	}
	o.token = token
	o.status = StatusIdle
	o.msg = msgConnected
	o.logger.InfoContext(ctx, "drive connected", "op", log.OpLogin)
	return o.snapshotLocked()
}

// Logout drops the token and any feedback. Local entries and the file
// binding stay, so a later session re-attaches to the same document
// without a name search.
func (o *Orchestrator) Logout(ctx context.Context) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == StatusDisabled {
		return o.snapshotLocked()
	}
	o.token = ""
	o.status = StatusIdle
	o.msg, o.errMsg = "", ""
	o.logger.InfoContext(ctx, "drive disconnected", "op", log.OpLogout)
	return o.snapshotLocked()
}

// Push uploads the full ledger as one backup document, creating or
// re-finding the Drive file first when no binding exists.
func (o *Orchestrator) Push(ctx context.Context) State {
	o.mu.Lock()
	if !o.beginSyncLocked() {
		defer o.mu.Unlock()
		return o.snapshotLocked()
	}
	token := o.token
	fileID := o.meta.FileID
	o.mu.Unlock()

	payload := drive.BackupPayload{
		Entries:  o.store.Entries(),
		SyncedAt: o.now().UTC(),
		Version:  drive.PayloadVersion,
	}
	result, err := o.client.Upload(ctx, token, fileID, payload)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.logger.WarnContext(ctx, "backup upload failed", "op", log.OpPush, "error", err)
		o.failLocked(err)
		return o.snapshotLocked()
	}

	// prefer the modification timestamp Drive reports for the upload
	syncedAt := payload.SyncedAt
	if ts, perr := time.Parse(time.RFC3339, result.ModifiedTime); perr == nil {
		syncedAt = ts
	}
	o.bindLocked(ctx, result.FileID, syncedAt)
	o.status = StatusSuccess
	o.msg = msgPushSuccess
	o.logger.InfoContext(ctx, "backup uploaded",
		"op", log.OpPush, "file_id", result.FileID, "entries", len(payload.Entries))
	return o.snapshotLocked()
}

// Pull downloads the backup document and replaces the local ledger
// with its entries. The remote copy always wins.
func (o *Orchestrator) Pull(ctx context.Context) State {
	o.mu.Lock()
	if !o.beginSyncLocked() {
		defer o.mu.Unlock()
		return o.snapshotLocked()
	}
	token := o.token
	fileID := o.meta.FileID
	o.mu.Unlock()

	var payload drive.BackupPayload
	id, err := o.client.EnsureFile(ctx, token, fileID, o.client.FileName())
	if err == nil {
		payload, err = o.client.Download(ctx, token, id)
		if err == nil {
			o.store.ReplaceAll(payload.Entries)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.logger.WarnContext(ctx, "backup download failed", "op", log.OpPull, "error", err)
		o.failLocked(err)
		return o.snapshotLocked()
	}
	o.bindLocked(ctx, id, payload.SyncedAt)
	o.status = StatusSuccess
	o.msg = msgPullSuccess
	o.logger.InfoContext(ctx, "backup restored",
		"op", log.OpPull, "file_id", id, "entries", o.store.Len())
	return o.snapshotLocked()
}

// ClearFeedback dismisses the current message and error. The status
// itself is left alone; only operations move it.
func (o *Orchestrator) ClearFeedback() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msg, o.errMsg = "", ""
	return o.snapshotLocked()
}

// beginSyncLocked moves into the syncing state, or reports why not.
// A missing credential sets the error feedback but leaves the status
// untouched, so no spinner ever shows for a request that never starts.
func (o *Orchestrator) beginSyncLocked() bool {
	if o.status == StatusDisabled || o.busyLocked() {
		return false
	}
	if o.token == "" {
		o.errMsg = msgTokenMissing
		return false
	}
	o.status = StatusSyncing
	o.msg, o.errMsg = "", ""
	return true
}

func (o *Orchestrator) busyLocked() bool {
	return o.status == StatusSyncing || o.status == StatusAuthenticating
}

// bindLocked records which Drive document the ledger is bound to and
// when it was last in sync. A zero syncedAt falls back to now.
func (o *Orchestrator) bindLocked(ctx context.Context, fileID string, syncedAt time.Time) {
	if syncedAt.IsZero() {
		syncedAt = o.now()
	}
	o.meta.FileID = fileID
	o.meta.FileName = o.client.FileName()
	o.meta.LastSyncedAt = syncedAt.UTC()
	if err := saveMetadata(o.kv, o.meta); err != nil {
		o.logger.WarnContext(ctx, "failed to persist sync metadata", "error", err)
	}
}

func (o *Orchestrator) failLocked(err error) {
	o.status = StatusError
	o.errMsg = fmt.Sprintf("%v", err)
}

func (o *Orchestrator) snapshotLocked() State {
	return State{
		Status:       o.status,
		Message:      o.msg,
		Error:        o.errMsg,
		FileID:       o.meta.FileID,
		LastSyncedAt: o.meta.LastSyncedAt,
		Connected:    o.token != "",
	}
}
