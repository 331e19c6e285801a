package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jetaide/backend/internal/embedding"
)

// CollectionName is the Qdrant collection holding all user memories.
const CollectionName = "jetaide_memories"

// QdrantStore implements Store against a Qdrant instance over HTTP.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	embedder   embedding.Embedder
	httpClient *http.Client
}

// NewQdrantStore creates a Qdrant-backed memory store.
func NewQdrantStore(baseURL, apiKey string, embedder embedding.Embedder, timeout time.Duration) *QdrantStore {
	return &QdrantStore{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		collection: CollectionName,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

type upsertPointsRequest struct {
	Points []point `json:"points"`
}

type userFilter struct {
	Must []filterCondition `json:"must"`
}

type filterCondition struct {
	Key   string      `json:"key"`
	Match filterMatch `json:"match"`
}

type filterMatch struct {
	Value string `json:"value"`
}

type searchRequest struct {
	Vector      []float32  `json:"vector"`
	Filter      userFilter `json:"filter"`
	Limit       int        `json:"limit"`
	WithPayload bool       `json:"with_payload"`
}

type searchResponse struct {
	Result []searchHit `json:"result"`
}

type searchHit struct {
	ID      string            `json:"id"`
	Score   float32           `json:"score"`
	Payload map[string]string `json:"payload"`
}

type deletePointsRequest struct {
	Filter userFilter `json:"filter"`
}

func matchUser(userID string) userFilter {
	return userFilter{
		Must: []filterCondition{
			{Key: "user_id", Match: filterMatch{Value: userID}},
		},
	}
}

// EnsureCollection creates the collection with the fixed dimensionality
// and cosine distance if it does not exist yet. Safe to call repeatedly.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	status, _, err := s.do(ctx, http.MethodGet, "/collections/"+s.collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("unexpected status %d checking collection", status)
	}

	body := createCollectionRequest{
		Vectors: vectorParams{Size: embedding.Dimensions, Distance: "Cosine"},
	}
	status, respBody, err := s.do(ctx, http.MethodPut, "/collections/"+s.collection, body)
	if err != nil {
		return err
	}
	// Another writer may have created it concurrently; creation is idempotent
	// for our fixed parameters.
	if status != http.StatusOK && status != http.StatusConflict {
		return fmt.Errorf("failed to create collection [%d]: %s", status, respBody)
	}
	return nil
}

// StoreMemory embeds content and upserts a point owned by the user.
func (s *QdrantStore) StoreMemory(ctx context.Context, userID, content string, metadata map[string]string) (string, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return "", err
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"user_id": userID,
		"content": content,
	}
	for k, v := range metadata {
		payload[k] = v
	}

	pointID := PointID(userID, content)
	body := upsertPointsRequest{
		Points: []point{{ID: pointID, Vector: vector, Payload: payload}},
	}
	status, respBody, err := s.do(ctx, http.MethodPut, "/collections/"+s.collection+"/points", body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("failed to upsert point [%d]: %s", status, respBody)
	}
	return pointID, nil
}

// SearchMemories embeds the query and returns the user's most similar
// memories, strictly filtered to their own points.
func (s *QdrantStore) SearchMemories(ctx context.Context, userID, query string, limit int) ([]Memory, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	body := searchRequest{
		Vector:      vector,
		Filter:      matchUser(userID),
		Limit:       limit,
		WithPayload: true,
	}
	status, respBody, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("failed to search points [%d]: %s", status, respBody)
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}

	memories := make([]Memory, 0, len(result.Result))
	for _, hit := range result.Result {
		memories = append(memories, Memory{
			Content:  hit.Payload["content"],
			Score:    hit.Score,
			Metadata: stripReserved(hit.Payload),
		})
	}
	return memories, nil
}

// DeleteUserMemories removes every point whose payload matches the user.
func (s *QdrantStore) DeleteUserMemories(ctx context.Context, userID string) error {
	status, respBody, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/delete", deletePointsRequest{Filter: matchUser(userID)})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("failed to delete points [%d]: %s", status, respBody)
	}
	return nil
}

// do sends a JSON request and returns the status code and response body.
func (s *QdrantStore) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// Ensure QdrantStore implements Store.
var _ Store = (*QdrantStore)(nil)
