package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jetaide/backend/internal/domain"
)

// CreateGoal creates a new goal for the user. Status starts as active.
func (s *Service) CreateGoal(ctx context.Context, userID, title, description, category string) (*domain.Goal, error) {
	now := time.Now()
	goal := &domain.Goal{
		GoalID:      uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Category:    category,
		Status:      domain.GoalStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return goal, nil
}

// GetGoal returns a goal owned by the user.
func (s *Service) GetGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	return s.store.GetGoal(ctx, userID, goalID)
}

// ListGoals returns all goals for the user.
func (s *Service) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// UpdateGoal applies a partial update to a goal owned by the user.
func (s *Service) UpdateGoal(ctx context.Context, userID, goalID string, update domain.GoalUpdate) (*domain.Goal, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("%w: goal status %q", domain.ErrInvalidInput, *update.Status)
	}
	return s.store.UpdateGoal(ctx, userID, goalID, update)
}

// DeleteGoal deletes a goal owned by the user; its progress entries
// cascade.
func (s *Service) DeleteGoal(ctx context.Context, userID, goalID string) error {
	return s.store.DeleteGoal(ctx, userID, goalID)
}

// AddProgress records a progress entry against a goal owned by the user.
func (s *Service) AddProgress(ctx context.Context, userID, goalID, note, mood string) (*domain.ProgressEntry, error) {
	// Ownership check before writing.
	if _, err := s.store.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}

	entry := &domain.ProgressEntry{
		ProgressID: uuid.NewString(),
		GoalID:     goalID,
		Note:       note,
		Mood:       mood,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateProgress(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create progress entry: %w", err)
	}
	return entry, nil
}

// ListProgress returns a goal's progress entries, newest first.
func (s *Service) ListProgress(ctx context.Context, userID, goalID string) ([]domain.ProgressEntry, error) {
	if _, err := s.store.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListProgress(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	return entries, nil
}
