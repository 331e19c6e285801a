// Package domain defines the core domain models for the chat backend.
package domain

import "time"

// Conversation is a thread of messages owned by a single user.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is a single user or assistant utterance within a conversation.
// Messages are append-only and ordered by creation time.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Goal is a personal goal the assistant coaches the user toward.
type Goal struct {
	GoalID      string     `json:"goal_id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Status      GoalStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GoalUpdate is a partial update; nil fields are left untouched.
type GoalUpdate struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Status      *GoalStatus `json:"status,omitempty"`
}

// ProgressEntry records a check-in against a goal.
type ProgressEntry struct {
	ProgressID string    `json:"progress_id"`
	GoalID     string    `json:"goal_id"`
	Note       string    `json:"note"`
	Mood       string    `json:"mood,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
