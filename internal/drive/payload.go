package drive

import (
	"time"

	"moneymap/internal/core"
)

// PayloadVersion marks the current backup document format. Older or
// partial payloads missing the field are read as version 1.
const PayloadVersion = 1

// ErrMissingEntries is returned when a downloaded backup parses as JSON
// but lacks the entries field. A backup without entries is malformed,
// never silently treated as empty.
// Surfaced to the user as "unable to download backup".
var ErrMissingEntries = &malformedBackupError{}

type malformedBackupError struct{}

func (*malformedBackupError) Error() string {
	return "drive backup is missing entries data"
}

// BackupPayload is the whole-document backup stored in Drive.
type BackupPayload struct {
	Entries  []core.Entry `json:"entries"`
	SyncedAt time.Time    `json:"syncedAt"`
	Version  int          `json:"version"`
}

// UploadResult reports the object a push landed in and, when Drive
// returns one, its new modification timestamp.
type UploadResult struct {
	FileID       string
	ModifiedTime string
}
