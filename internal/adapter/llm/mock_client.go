package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"
)

// MockClient is a mock implementation of GatewayClient for testing and
// local development without gateway credentials. Responses are
// deterministic for a given request so that streaming and non-streaming
// calls reconstruct the same text.
type MockClient struct {
	// Models overrides the default mock catalog when non-nil.
	Models []Model
}

// NewMockClient creates a new mock gateway client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements GatewayClient interface.
var _ GatewayClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	responseContent := m.generateMockResponse(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: responseContent,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(responseContent) / 4,
			TotalTokens:      m.estimateTokens(req) + len(responseContent)/4,
		},
	}, nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) error {
	responseContent := m.generateMockResponse(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	// Simulate streaming by sending content in chunks
	chunks := splitIntoChunks(responseContent, 10)

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		finishReason := ""
		if i == len(chunks)-1 {
			finishReason = "stop"
		}

		streamChunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{
					Index: 0,
					Delta: &ChatMessage{
						Role:    "assistant",
						Content: chunk,
					},
					FinishReason: finishReason,
				},
			},
		}

		if err := callback(streamChunk); err != nil {
			return err
		}
	}

	return nil
}

// ListModels returns a mock catalog with pricing.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	if m.Models != nil {
		return m.Models, nil
	}
	return []Model{
		{
			ID:            "anthropic/claude-3.5-sonnet",
			ContextLength: 200000,
			Pricing:       Pricing{Prompt: "0.000003", Completion: "0.000015"},
		},
		{
			ID:            "openai/gpt-4o-mini",
			ContextLength: 128000,
			Pricing:       Pricing{Prompt: "0.00000015", Completion: "0.0000006"},
		},
		{
			ID:            "meta-llama/llama-3.1-8b-instruct",
			ContextLength: 131072,
			Pricing:       Pricing{Prompt: "0.00000005", Completion: "0.00000005"},
		},
	}, nil
}

// CreateEmbedding returns a deterministic hash-based embedding so that
// identical text always maps to the same vector.
func (m *MockClient) CreateEmbedding(ctx context.Context, model, input string) ([]float32, error) {
	const dimensions = 1536

	h := fnv.New64a()
	h.Write([]byte(input))
	seed := h.Sum64()

	embedding := make([]float32, dimensions)
	for i := 0; i < dimensions; i++ {
		// Simple LCG over the text hash
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return embedding, nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the gateway client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
