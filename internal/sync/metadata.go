package sync

import (
	"encoding/json"
	"time"

	"moneymap/internal/storage"
)

// Metadata binds the local ledger to its backup document on Drive.
type Metadata struct {
	FileID       string    `json:"fileId"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
	FileName     string    `json:"fileName"`
	Version      int       `json:"version"`
}

const metadataVersion = 1

// loadMetadata reads the persisted file binding. Missing or corrupt
// state yields empty metadata so the next push re-binds from scratch.
func loadMetadata(kv storage.KV) Metadata {
	raw, ok, err := kv.Get(storage.KeySyncMetadata)
	if err != nil || !ok {
		return Metadata{}
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return Metadata{}
	}
	return meta
}

func saveMetadata(kv storage.KV, meta Metadata) error {
	meta.Version = metadataVersion
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return kv.Set(storage.KeySyncMetadata, string(raw))
}
