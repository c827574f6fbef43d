// Package storage is the local persistence adapter: a small synchronous
// key-value store of JSON-serialized text, the on-device counterpart of
// browser localStorage. The ledger, the sync metadata and the currency
// preference each live under their own fixed key.
package storage

// Fixed logical keys. The values carry their own version suffix so a
// future format change can migrate by introducing a new key.
const (
	KeyEntries      = "money-map-expenses-v1"
	KeySyncMetadata = "money-map-drive-metadata"
	KeyCurrency     = "money-map-currency"
)

// KV is a synchronous string store keyed by name. Get reports presence
// separately from errors so a missing key is not a failure.
type KV interface {
	Get(name string) (value string, ok bool, err error)
	Set(name, value string) error
	Delete(name string) error
}
