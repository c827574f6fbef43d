package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldEntryID    = "entry_id"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldFileID     = "file_id"
	FieldSyncStatus = "sync_status"
	FieldEntryCount = "entry_count"
	FieldStorageKey = "storage_key"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentDrive    = "drive"
	ComponentSync     = "sync"
	ComponentCurrency = "currency"
	ComponentExport   = "export"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpAdd        = "add"
	OpUpdate     = "update"
	OpRemove     = "remove"
	OpReplaceAll = "replace_all"
	OpHydrate    = "hydrate"
	OpPersist    = "persist"
	OpEnsure     = "ensure"
	OpPush       = "push"
	OpPull       = "pull"
	OpLogin      = "login"
	OpLogout     = "logout"
	OpExport     = "export"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)
