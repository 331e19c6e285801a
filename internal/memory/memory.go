// Package memory persists and retrieves per-user vector memories used to
// ground the assistant's prompts in prior exchanges.
package memory

import (
	"context"

	"github.com/google/uuid"
)

// Memory is a retrieved memory with its similarity score.
type Memory struct {
	Content  string            `json:"content"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Store persists (vector, payload) pairs scoped per user. Every stored
// point carries the owning user_id in its payload, and every search and
// delete filters on it; cross-user leakage is a correctness violation.
//
// Callers treat store failures as best-effort: memory is an enhancement,
// never a blocking dependency for chat to function.
type Store interface {
	// EnsureCollection idempotently creates the backing index.
	EnsureCollection(ctx context.Context) error

	// StoreMemory embeds content and upserts a point for the user.
	// Re-storing identical content for the same user overwrites the
	// existing point rather than duplicating it.
	StoreMemory(ctx context.Context, userID, content string, metadata map[string]string) (string, error)

	// SearchMemories returns up to limit memories for the user, most
	// relevant first. Returned metadata excludes user_id and content.
	SearchMemories(ctx context.Context, userID, query string, limit int) ([]Memory, error)

	// DeleteUserMemories removes every point owned by the user.
	DeleteUserMemories(ctx context.Context, userID string) error
}

// pointNamespace scopes deterministic point ids to this application.
var pointNamespace = uuid.MustParse("4a1e1b6e-7c39-45d2-9f3a-8b25c0d6e917")

// PointID derives a stable, deterministic id from the owning user and the
// content, so the same exchange stored twice upserts instead of
// duplicating. UUIDv5 keeps ids stable across process restarts.
func PointID(userID, content string) string {
	return uuid.NewSHA1(pointNamespace, []byte(userID+"\x00"+content)).String()
}

// stripReserved removes payload keys that are returned as first-class
// fields rather than metadata.
func stripReserved(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if k == "user_id" || k == "content" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
