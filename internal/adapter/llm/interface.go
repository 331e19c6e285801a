package llm

import "context"

// GatewayClient defines the interface for LLM gateway operations.
type GatewayClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateChatCompletionStream sends a streaming chat completion request.
	// The callback is called for each chunk received.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) error

	// ListModels retrieves the model catalog with pricing metadata.
	ListModels(ctx context.Context) ([]Model, error)

	// CreateEmbedding converts text into an embedding vector.
	CreateEmbedding(ctx context.Context, model, input string) ([]float32, error)
}

// Ensure Client implements GatewayClient interface.
var _ GatewayClient = (*Client)(nil)
