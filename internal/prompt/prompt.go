// Package prompt assembles the grounded system prompt from the user's
// active goals and semantically retrieved memories.
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jetaide/backend/internal/memory"
	"github.com/jetaide/backend/internal/store"
)

// memoryLimit is how many retrieved memories feed the prompt.
const memoryLimit = 3

const (
	noGoalsText   = "No active goals set yet."
	noContextText = "No previous context available."
)

// systemTemplate carries the assistant's persona and behavioral guidance.
// The goals and context slots are filled per turn.
const systemTemplate = `You are JetAide, a supportive AI assistant that helps people achieve their personal goals like quitting smoking, eating healthier, exercising more, or any other positive life change.

Your role is to:
- Be encouraging and empathetic, understanding that change is hard
- Provide practical, actionable advice
- Celebrate small wins and progress
- Help users identify triggers and develop coping strategies
- Remember context from previous conversations to provide personalized support
- Never be judgmental about setbacks - they're part of the journey

When the user shares information about their goals or progress, acknowledge it and offer relevant support.

User's current goals:
%s

Relevant context from previous conversations:
%s
`

// Builder assembles system prompts.
type Builder struct {
	store    store.Store
	memories memory.Store
	logger   *slog.Logger
}

// NewBuilder creates a prompt builder.
func NewBuilder(s store.Store, memories memory.Store, logger *slog.Logger) *Builder {
	return &Builder{store: s, memories: memories, logger: logger}
}

// BuildSystemPrompt renders the system prompt for the user's next turn.
// Memory retrieval is best-effort: any failure degrades to the fixed
// no-context sentence, and this method never fails on that path. Goal
// loading failures likewise degrade rather than blocking the turn.
func (b *Builder) BuildSystemPrompt(ctx context.Context, userID, query string) string {
	goalsText := b.goalsBlock(ctx, userID)
	contextText := b.contextBlock(ctx, userID, query)
	return fmt.Sprintf(systemTemplate, goalsText, contextText)
}

func (b *Builder) goalsBlock(ctx context.Context, userID string) string {
	goals, err := b.store.ListActiveGoals(ctx, userID)
	if err != nil {
		b.logger.Warn("failed to load goals for prompt", "user_id", userID, "error", err)
		return noGoalsText
	}
	if len(goals) == 0 {
		return noGoalsText
	}

	lines := make([]string, 0, len(goals))
	for _, g := range goals {
		description := g.Description
		if description == "" {
			description = "No description"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", g.Title, g.Category, description))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) contextBlock(ctx context.Context, userID, query string) string {
	memories, err := b.memories.SearchMemories(ctx, userID, query, memoryLimit)
	if err != nil {
		b.logger.Warn("memory retrieval failed, degrading prompt", "user_id", userID, "error", err)
		return noContextText
	}
	if len(memories) == 0 {
		return noContextText
	}

	lines := make([]string, 0, len(memories))
	for _, m := range memories {
		lines = append(lines, "- "+m.Content)
	}
	return strings.Join(lines, "\n")
}
