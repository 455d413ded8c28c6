package models

// SyncResult is the outcome of one sync pass over the pending queue.
// It is computed fresh on every pass and never persisted.
type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}
