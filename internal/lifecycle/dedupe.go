package lifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/younsl/lifecycled/internal/models"
)

// DedupeKey identifies one real-world lifecycle transition
type DedupeKey struct {
	InstanceID string
	EventType  models.EventType
	EventTime  string
}

// KeyOf returns the dedupe key of a post-write image
func KeyOf(rec models.InstanceRecord) DedupeKey {
	return DedupeKey{
		InstanceID: rec.InstanceID,
		EventType:  rec.LastEventType,
		EventTime:  rec.LastEventTime,
	}
}

func (k DedupeKey) String() string {
	return strings.Join([]string{k.InstanceID, string(k.EventType), k.EventTime}, "#")
}

// ExecutionName is a stable name for the archival run of k, usable as a
// Step Functions execution name (80 chars, [A-Za-z0-9-_]).
func (k DedupeKey) ExecutionName() string {
	sum := sha256.Sum256([]byte(k.String()))
	id := k.InstanceID
	if len(id) > 40 {
		id = id[:40]
	}
	return sanitizeName(id) + "-" + hex.EncodeToString(sum[:])[:32]
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
