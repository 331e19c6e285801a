// Package service implements the chat turn orchestration and goal
// management on top of the store, prompt, completion and memory layers.
package service

import (
	"log/slog"

	"github.com/jetaide/backend/internal/completion"
	"github.com/jetaide/backend/internal/memory"
	"github.com/jetaide/backend/internal/prompt"
	"github.com/jetaide/backend/internal/store"
)

// Service ties the stores and the completion pipeline together.
type Service struct {
	store    store.Store
	memories memory.Store
	prompts  *prompt.Builder
	pipeline *completion.Pipeline
	logger   *slog.Logger
}

// New creates a new service.
func New(s store.Store, memories memory.Store, prompts *prompt.Builder, pipeline *completion.Pipeline, logger *slog.Logger) *Service {
	return &Service{
		store:    s,
		memories: memories,
		prompts:  prompts,
		pipeline: pipeline,
		logger:   logger,
	}
}
