package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/jetaide/backend/internal/embedding"
)

// ChromemStore implements Store on chromem-go, a pure-Go embedded vector
// database. It serves local development and tests where no Qdrant
// instance is available; chromem uses cosine similarity by default, the
// same metric the Qdrant collection is created with.
type ChromemStore struct {
	db       *chromem.DB
	embedder embedding.Embedder

	mu         sync.Mutex
	collection *chromem.Collection
}

// NewChromemStore creates an embedded memory store.
func NewChromemStore(embedder embedding.Embedder) *ChromemStore {
	return &ChromemStore{
		db:       chromem.NewDB(),
		embedder: embedder,
	}
}

// EnsureCollection creates the collection if absent. Idempotent.
func (s *ChromemStore) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection != nil {
		return nil
	}
	// Embeddings are always supplied on documents, so no embedding
	// function is registered with the collection.
	col, err := s.db.GetOrCreateCollection(CollectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	s.collection = col
	return nil
}

// StoreMemory embeds content and upserts a document owned by the user.
func (s *ChromemStore) StoreMemory(ctx context.Context, userID, content string, metadata map[string]string) (string, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return "", err
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return "", err
	}

	meta := map[string]string{
		"user_id": userID,
		"content": content,
	}
	for k, v := range metadata {
		meta[k] = v
	}

	pointID := PointID(userID, content)
	doc := chromem.Document{
		ID:        pointID,
		Content:   content,
		Embedding: vector,
		Metadata:  meta,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to add document: %w", err)
	}
	return pointID, nil
}

// SearchMemories returns the user's most similar memories.
func (s *ChromemStore) SearchMemories(ctx context.Context, userID, query string, limit int) ([]Memory, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	where := map[string]string{"user_id": userID}

	// chromem rejects nResults larger than the number of matching
	// documents, so retry with smaller limits until we get a result.
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = s.collection.QueryEmbedding(ctx, vector, n, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	memories := make([]Memory, 0, len(results))
	for _, r := range results {
		memories = append(memories, Memory{
			Content:  r.Metadata["content"],
			Score:    r.Similarity,
			Metadata: stripReserved(r.Metadata),
		})
	}
	return memories, nil
}

// DeleteUserMemories removes every document owned by the user.
func (s *ChromemStore) DeleteUserMemories(ctx context.Context, userID string) error {
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}
	if err := s.collection.Delete(ctx, map[string]string{"user_id": userID}, nil); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// isInsufficientDocsError reports whether err is chromem complaining that
// fewer documents exist than requested results.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

// Ensure ChromemStore implements Store.
var _ Store = (*ChromemStore)(nil)
