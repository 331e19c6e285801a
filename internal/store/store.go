// Package store provides persistence for conversations, messages and goals.
package store

import (
	"context"

	"github.com/jetaide/backend/internal/domain"
)

// Store defines the persistence operations used by the services.
// Records are always scoped by the owning user where ownership applies.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	// SetConversationTitle sets the title only if it is currently unset.
	SetConversationTitle(ctx context.Context, conversationID, title string) error
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	// Messages
	CreateMessage(ctx context.Context, msg *domain.Message) error
	// GetMessages returns messages oldest-first. A limit > 0 keeps only the
	// most recent limit messages (still oldest-first).
	GetMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// Goals
	CreateGoal(ctx context.Context, goal *domain.Goal) error
	GetGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
	ListActiveGoals(ctx context.Context, userID string) ([]domain.Goal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, update domain.GoalUpdate) (*domain.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error

	// Progress
	CreateProgress(ctx context.Context, entry *domain.ProgressEntry) error
	ListProgress(ctx context.Context, goalID string) ([]domain.ProgressEntry, error)

	Close() error
}
