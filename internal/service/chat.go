package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jetaide/backend/internal/adapter/llm"
	"github.com/jetaide/backend/internal/domain"
)

const (
	// historyWindow is how many trailing messages (including the just
	// persisted user message) are sent to the model.
	historyWindow = 20

	// titleMaxLen bounds the conversation title derived from the first
	// user message.
	titleMaxLen = 50
)

// TurnResult is the outcome of a completed chat turn.
type TurnResult struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
}

// MemoryOutcome is the explicit result of a best-effort memory write.
// It is logged, never propagated: memory is an enhancement, not a
// dependency of the turn.
type MemoryOutcome struct {
	PointID string
	Err     error
}

// turn carries the state threaded through one user-message-in /
// assistant-message-out cycle.
type turn struct {
	conversation *domain.Conversation
	userMessage  string
	messages     []llm.ChatMessage
}

// SendMessage handles a blocking chat turn: resolve the conversation,
// persist the user message, assemble the prompt and history window,
// invoke the model, persist the reply and best-effort store the exchange
// as a memory.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID, message string) (*TurnResult, error) {
	t, err := s.beginTurn(ctx, userID, conversationID, message)
	if err != nil {
		return nil, err
	}

	response, err := s.pipeline.Complete(ctx, t.messages, "")
	if err != nil {
		return nil, err
	}

	if err := s.finishTurn(ctx, t, response); err != nil {
		return nil, err
	}

	return &TurnResult{ConversationID: t.conversation.ConversationID, Response: response}, nil
}

// SendMessageStream handles a streaming chat turn. Deltas are forwarded
// to fn as they arrive; the assistant message and title are persisted
// only after the stream drains cleanly. If the stream fails or the client
// disconnects mid-stream, the partial reply is discarded.
func (s *Service) SendMessageStream(ctx context.Context, userID, conversationID, message string, fn func(delta string) error) (*TurnResult, error) {
	t, err := s.beginTurn(ctx, userID, conversationID, message)
	if err != nil {
		return nil, err
	}

	var full strings.Builder
	err = s.pipeline.CompleteStream(ctx, t.messages, "", func(delta string) error {
		full.WriteString(delta)
		return fn(delta)
	})
	if err != nil {
		return nil, err
	}

	response := full.String()
	if err := s.finishTurn(ctx, t, response); err != nil {
		return nil, err
	}

	return &TurnResult{ConversationID: t.conversation.ConversationID, Response: response}, nil
}

// beginTurn resolves the conversation, durably persists the inbound user
// message before any model call, and assembles the windowed message list.
func (s *Service) beginTurn(ctx context.Context, userID, conversationID, message string) (*turn, error) {
	conv, err := s.resolveConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userMsg := &domain.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conv.ConversationID,
		Role:           domain.RoleUser,
		Content:        message,
		CreatedAt:      now,
	}
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	systemPrompt := s.prompts.BuildSystemPrompt(ctx, userID, message)

	history, err := s.store.GetMessages(ctx, conv.ConversationID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.ChatMessage{Role: string(domain.RoleSystem), Content: systemPrompt})
	for _, msg := range history {
		messages = append(messages, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	return &turn{conversation: conv, userMessage: message, messages: messages}, nil
}

// finishTurn persists the assistant reply, sets the title exactly once,
// and best-effort records the exchange as a memory.
func (s *Service) finishTurn(ctx context.Context, t *turn, response string) error {
	assistantMsg := &domain.Message{
		MessageID:      uuid.NewString(),
		ConversationID: t.conversation.ConversationID,
		Role:           domain.RoleAssistant,
		Content:        response,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreateMessage(ctx, assistantMsg); err != nil {
		return fmt.Errorf("failed to persist assistant message: %w", err)
	}

	if t.conversation.Title == "" {
		title := deriveTitle(t.userMessage)
		if err := s.store.SetConversationTitle(ctx, t.conversation.ConversationID, title); err != nil {
			return fmt.Errorf("failed to set conversation title: %w", err)
		}
	}

	outcome := s.recordExchange(ctx, t.conversation.UserID, t.userMessage, response)
	if outcome.Err != nil {
		s.logger.Warn("memory write failed for turn",
			"user_id", t.conversation.UserID,
			"conversation_id", t.conversation.ConversationID,
			"error", outcome.Err)
	} else {
		s.logger.Info("turn complete",
			"conversation_id", t.conversation.ConversationID,
			"memory_point", outcome.PointID)
	}
	return nil
}

// resolveConversation loads the conversation when an id is given (it must
// belong to the user) or lazily creates one.
func (s *Service) resolveConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	if conversationID != "" {
		return s.store.GetConversation(ctx, userID, conversationID)
	}

	now := time.Now()
	conv := &domain.Conversation{
		ConversationID: uuid.NewString(),
		UserID:         userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// recordExchange stores the exchange as a vector memory for future
// retrieval. The outcome is returned for logging, never propagated.
func (s *Service) recordExchange(ctx context.Context, userID, message, response string) MemoryOutcome {
	content := fmt.Sprintf("User: %s\nAssistant: %s", message, response)
	pointID, err := s.memories.StoreMemory(ctx, userID, content, nil)
	return MemoryOutcome{PointID: pointID, Err: err}
}

// deriveTitle truncates the first user message to titleMaxLen characters,
// appending an ellipsis iff truncated.
func deriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxLen {
		return message
	}
	return string(runes[:titleMaxLen]) + "..."
}

// ListConversations returns the user's conversations, most recently
// updated first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	conversations, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// DeleteConversation deletes a conversation owned by the user.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return s.store.DeleteConversation(ctx, userID, conversationID)
}

// DeleteUserMemories purges every vector memory owned by the user.
func (s *Service) DeleteUserMemories(ctx context.Context, userID string) error {
	if err := s.memories.DeleteUserMemories(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user memories: %w", err)
	}
	return nil
}
