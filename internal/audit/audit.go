package audit

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Entry is one audit log row for a sensitive operation.
type Entry struct {
	ID            string
	OccurredAt    time.Time
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	Metadata      map[string]string
	PayloadDigest string
	IP            string
	UserAgent     string
}

// NewID derives a stable audit id from action, resource and timestamp.
func NewID(action, resourceID string, at time.Time) string {
	sum := sha1.Sum([]byte(action + "|" + resourceID + "|" + at.UTC().Format(time.RFC3339Nano)))
	return "audit-" + hex.EncodeToString(sum[:8])
}

// DigestJSON computes a sha256 digest over the canonical JSON of v.
func DigestJSON(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
