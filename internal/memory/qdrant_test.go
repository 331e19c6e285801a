package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jetaide/backend/internal/adapter/llm"
	"github.com/jetaide/backend/internal/embedding"
)

// fakeQdrant is a minimal in-memory Qdrant lookalike covering the
// endpoints the store uses.
type fakeQdrant struct {
	mu       sync.Mutex
	created  bool
	points   map[string]point
	searches []searchRequest
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{points: make(map[string]point)}
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	collectionPath := "/collections/" + CollectionName
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == collectionPath:
			if !f.created {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `{"result":{}}`)

		case r.Method == http.MethodPut && r.URL.Path == collectionPath:
			var req createCollectionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad create body: %v", err)
			}
			if req.Vectors.Size != embedding.Dimensions || req.Vectors.Distance != "Cosine" {
				t.Errorf("unexpected vector params: %+v", req.Vectors)
			}
			f.created = true
			fmt.Fprint(w, `{"result":true}`)

		case r.Method == http.MethodPut && r.URL.Path == collectionPath+"/points":
			var req upsertPointsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad upsert body: %v", err)
			}
			for _, p := range req.Points {
				f.points[p.ID] = p
			}
			fmt.Fprint(w, `{"result":{}}`)

		case r.Method == http.MethodPost && r.URL.Path == collectionPath+"/points/search":
			var req searchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad search body: %v", err)
			}
			f.searches = append(f.searches, req)
			user := req.Filter.Must[0].Match.Value
			resp := searchResponse{}
			for _, p := range f.points {
				if p.Payload["user_id"] == user {
					resp.Result = append(resp.Result, searchHit{ID: p.ID, Score: 0.9, Payload: p.Payload})
				}
			}
			if len(resp.Result) > req.Limit {
				resp.Result = resp.Result[:req.Limit]
			}
			json.NewEncoder(w).Encode(resp)

		case r.Method == http.MethodPost && r.URL.Path == collectionPath+"/points/delete":
			var req deletePointsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad delete body: %v", err)
			}
			user := req.Filter.Must[0].Match.Value
			for id, p := range f.points {
				if p.Payload["user_id"] == user {
					delete(f.points, id)
				}
			}
			fmt.Fprint(w, `{"result":{}}`)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestQdrantStore(t *testing.T) (*QdrantStore, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	embedder := embedding.NewGatewayEmbedder(llm.NewMockClient(), "openai/text-embedding-ada-002")
	return NewQdrantStore(server.URL, "", embedder, time.Second), fake
}

func TestQdrantStoreEnsureCollectionIdempotent(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestQdrantStore(t)

	if err := s.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection failed: %v", err)
	}
	if !fake.created {
		t.Fatal("collection was not created")
	}
	// Second call must not fail.
	if err := s.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection failed on existing collection: %v", err)
	}
}

func TestQdrantStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestQdrantStore(t)

	pointID, err := s.StoreMemory(ctx, "alice", "User: hi\nAssistant: hello", map[string]string{"kind": "exchange"})
	if err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}
	if pointID != PointID("alice", "User: hi\nAssistant: hello") {
		t.Fatalf("unexpected point id: %s", pointID)
	}

	stored, ok := fake.points[pointID]
	if !ok {
		t.Fatal("point not upserted")
	}
	if stored.Payload["user_id"] != "alice" || stored.Payload["kind"] != "exchange" {
		t.Fatalf("unexpected payload: %+v", stored.Payload)
	}
	if len(stored.Vector) != embedding.Dimensions {
		t.Fatalf("unexpected vector dimension: %d", len(stored.Vector))
	}

	memories, err := s.SearchMemories(ctx, "alice", "greeting", 3)
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(memories))
	}
	if memories[0].Content != "User: hi\nAssistant: hello" || memories[0].Score != 0.9 {
		t.Fatalf("unexpected memory: %+v", memories[0])
	}
	if _, ok := memories[0].Metadata["user_id"]; ok {
		t.Fatal("user_id must be stripped from metadata")
	}

	// Every search request carries the strict user filter.
	if len(fake.searches) != 1 {
		t.Fatalf("expected 1 search, got %d", len(fake.searches))
	}
	filter := fake.searches[0].Filter.Must[0]
	if filter.Key != "user_id" || filter.Match.Value != "alice" {
		t.Fatalf("search not filtered by user: %+v", filter)
	}
}

func TestQdrantStoreDeleteUserMemories(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestQdrantStore(t)

	if _, err := s.StoreMemory(ctx, "alice", "a", nil); err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}
	if _, err := s.StoreMemory(ctx, "bob", "b", nil); err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}

	if err := s.DeleteUserMemories(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUserMemories failed: %v", err)
	}

	if len(fake.points) != 1 {
		t.Fatalf("expected only bob's point to remain, got %d points", len(fake.points))
	}
	for _, p := range fake.points {
		if p.Payload["user_id"] != "bob" {
			t.Fatalf("wrong point survived: %+v", p.Payload)
		}
	}
}
