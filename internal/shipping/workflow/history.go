package workflow

import (
	"bytes"
	"encoding/json"
	"time"
)

// HistoryEntry records one fee-status transition. Entries are append-only and
// immutable once written.
type HistoryEntry struct {
	Status  FeeStatus `json:"status"`
	From    FeeStatus `json:"from_status"`
	ActorID int64     `json:"actor_id"`
	At      time.Time `json:"at"`
}

// ParseHistory decodes the fee_status_history column. The column has three
// physical shapes in the wild: a native JSON array, a JSON-encoded string
// containing an array, or null. Anything unparseable degrades to an empty
// history rather than blocking the workflow.
func ParseHistory(raw []byte) []HistoryEntry {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(trimmed, &entries); err == nil {
		return entries
	}

	// Legacy rows stored the array serialized as a JSON string.
	var nested string
	if err := json.Unmarshal(trimmed, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &entries); err == nil {
			return entries
		}
	}

	return nil
}

// EncodeHistory serializes history for storage. An empty history encodes as
// an empty array, never null, so future reads stay on the fast path.
func EncodeHistory(entries []HistoryEntry) []byte {
	if len(entries) == 0 {
		return []byte("[]")
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return []byte("[]")
	}
	return data
}
