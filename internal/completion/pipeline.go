// Package completion drives single-shot and streaming completion calls
// against the gateway, selecting a model when the caller does not name one.
package completion

import (
	"context"
	"fmt"

	"github.com/jetaide/backend/internal/adapter/llm"
	"github.com/jetaide/backend/internal/catalog"
)

// Pipeline invokes the selected model for assembled messages.
type Pipeline struct {
	client      llm.GatewayClient
	selector    *catalog.Selector
	defaults    catalog.Constraints
	temperature float64
	maxTokens   int
}

// NewPipeline creates a completion pipeline. defaults constrain model
// selection when no model is named.
func NewPipeline(client llm.GatewayClient, selector *catalog.Selector, defaults catalog.Constraints, temperature float64, maxTokens int) *Pipeline {
	return &Pipeline{
		client:      client,
		selector:    selector,
		defaults:    defaults,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// resolveModel returns model, selecting one under default constraints
// when empty. Selection failure is fatal: no completion is possible
// without pricing data.
func (p *Pipeline) resolveModel(ctx context.Context, model string) (string, error) {
	if model != "" {
		return model, nil
	}
	selected, err := p.selector.Select(ctx, p.defaults)
	if err != nil {
		return "", fmt.Errorf("failed to select model: %w", err)
	}
	return selected, nil
}

func (p *Pipeline) request(model string, messages []llm.ChatMessage) *llm.ChatCompletionRequest {
	temperature := p.temperature
	maxTokens := p.maxTokens
	return &llm.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

// Complete returns the single textual completion for messages. Transport
// and provider errors propagate as hard failures.
func (p *Pipeline) Complete(ctx context.Context, messages []llm.ChatMessage, model string) (string, error) {
	model, err := p.resolveModel(ctx, model)
	if err != nil {
		return "", err
	}

	resp, err := p.client.CreateChatCompletion(ctx, p.request(model, messages))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", fmt.Errorf("gateway returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream streams the completion as text deltas. Only non-empty
// delta content is emitted; the stream ends at the upstream terminator.
// A callback error or context cancellation stops upstream consumption.
func (p *Pipeline) CompleteStream(ctx context.Context, messages []llm.ChatMessage, model string, fn func(delta string) error) error {
	model, err := p.resolveModel(ctx, model)
	if err != nil {
		return err
	}

	err = p.client.CreateChatCompletionStream(ctx, p.request(model, messages), func(chunk *llm.StreamChunk) error {
		delta := chunk.DeltaContent()
		if delta == "" {
			return nil
		}
		return fn(delta)
	})
	if err != nil {
		return fmt.Errorf("streaming completion failed: %w", err)
	}
	return nil
}
