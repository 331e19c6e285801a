// Package embedding converts text into fixed-dimension vectors via the
// LLM gateway's embedding capability.
package embedding

import (
	"context"
	"fmt"

	"github.com/jetaide/backend/internal/adapter/llm"
)

// Dimensions is the embedding vector size (ada-002 compatible).
const Dimensions = 1536

// Embedder converts text to a fixed-length float vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GatewayEmbedder embeds text through the LLM gateway.
type GatewayEmbedder struct {
	client llm.GatewayClient
	model  string
}

// NewGatewayEmbedder creates an embedder using the given embedding model.
func NewGatewayEmbedder(client llm.GatewayClient, model string) *GatewayEmbedder {
	return &GatewayEmbedder{client: client, model: model}
}

// Embed returns the embedding vector for text. Any gateway failure
// propagates; callers decide whether it is fatal or best-effort.
func (e *GatewayEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.CreateEmbedding(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(vector) != Dimensions {
		return nil, fmt.Errorf("unexpected embedding dimension %d, want %d", len(vector), Dimensions)
	}
	return vector, nil
}
