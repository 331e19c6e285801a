package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetaide/backend/internal/adapter/llm"
	"github.com/jetaide/backend/internal/catalog"
	"github.com/jetaide/backend/internal/completion"
	"github.com/jetaide/backend/internal/domain"
	"github.com/jetaide/backend/internal/embedding"
	"github.com/jetaide/backend/internal/memory"
	"github.com/jetaide/backend/internal/prompt"
	"github.com/jetaide/backend/internal/store"
)

// recordingGateway captures the last completion request for assertions.
type recordingGateway struct {
	*llm.MockClient
	lastRequest *llm.ChatCompletionRequest
}

func (g *recordingGateway) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	g.lastRequest = req
	return g.MockClient.CreateChatCompletion(ctx, req)
}

func (g *recordingGateway) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest, callback llm.StreamCallback) error {
	g.lastRequest = req
	return g.MockClient.CreateChatCompletionStream(ctx, req, callback)
}

// failingMemories simulates an unreachable vector store.
type failingMemories struct{}

func (failingMemories) EnsureCollection(ctx context.Context) error { return errors.New("unreachable") }

func (failingMemories) StoreMemory(ctx context.Context, userID, content string, metadata map[string]string) (string, error) {
	return "", errors.New("unreachable")
}

func (failingMemories) SearchMemories(ctx context.Context, userID, query string, limit int) ([]memory.Memory, error) {
	return nil, errors.New("unreachable")
}

func (failingMemories) DeleteUserMemories(ctx context.Context, userID string) error {
	return errors.New("unreachable")
}

func newTestService(t *testing.T, memories memory.Store) (*Service, store.Store, memory.Store, *recordingGateway) {
	t.Helper()

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gateway := &recordingGateway{MockClient: llm.NewMockClient()}

	if memories == nil {
		embedder := embedding.NewGatewayEmbedder(gateway, "openai/text-embedding-ada-002")
		memories = memory.NewChromemStore(embedder)
	}

	selector := catalog.NewSelector(catalog.New(gateway), "anthropic/claude-3.5-sonnet")
	defaults := catalog.Constraints{
		MaxPricePerMillion: 5.0,
		MinContextLength:   8000,
		PreferredProviders: []string{"anthropic", "openai"},
	}
	pipeline := completion.NewPipeline(gateway, selector, defaults, 0.7, 2048)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prompts := prompt.NewBuilder(db, memories, logger)
	svc := New(db, memories, prompts, pipeline, logger)
	return svc, db, memories, gateway
}

func TestSendMessageFirstTurn(t *testing.T) {
	ctx := context.Background()
	svc, db, memories, gateway := newTestService(t, nil)

	result, err := svc.SendMessage(ctx, "u1", "", "I want to quit smoking")
	require.NoError(t, err)
	require.NotEmpty(t, result.ConversationID)
	require.NotEmpty(t, result.Response)

	// Conversation exists, titled from the first user message.
	conv, err := db.GetConversation(ctx, "u1", result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "I want to quit smoking", conv.Title)

	// One user and one assistant message, in order.
	messages, err := db.GetMessages(ctx, result.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, "I want to quit smoking", messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, messages[1].Role)
	assert.Equal(t, result.Response, messages[1].Content)

	// The exchange was stored as a memory for this user.
	stored, err := memories.SearchMemories(ctx, "u1", "quit smoking", 3)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Contains(t, stored[0].Content, "User: I want to quit smoking")
	assert.Contains(t, stored[0].Content, "Assistant: ")

	// The model saw the system prompt first, then the user message.
	require.NotNil(t, gateway.lastRequest)
	require.NotEmpty(t, gateway.lastRequest.Messages)
	assert.Equal(t, "system", gateway.lastRequest.Messages[0].Role)
	assert.Equal(t, "user", gateway.lastRequest.Messages[1].Role)
}

func TestSendMessageTitleTruncatedAndImmutable(t *testing.T) {
	ctx := context.Background()
	svc, db, _, _ := newTestService(t, nil)

	long := strings.Repeat("a", 60)
	result, err := svc.SendMessage(ctx, "u1", "", long)
	require.NoError(t, err)

	conv, err := db.GetConversation(ctx, "u1", result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 50)+"...", conv.Title)

	// A later turn must not change the title.
	_, err = svc.SendMessage(ctx, "u1", result.ConversationID, "something else entirely")
	require.NoError(t, err)

	conv, err = db.GetConversation(ctx, "u1", result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 50)+"...", conv.Title)
}

func TestSendMessageShortTitleNoEllipsis(t *testing.T) {
	ctx := context.Background()
	svc, db, _, _ := newTestService(t, nil)

	exact := strings.Repeat("b", 50)
	result, err := svc.SendMessage(ctx, "u1", "", exact)
	require.NoError(t, err)

	conv, err := db.GetConversation(ctx, "u1", result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, exact, conv.Title)
}

func TestSendMessageForeignConversation(t *testing.T) {
	ctx := context.Background()
	svc, db, _, _ := newTestService(t, nil)

	result, err := svc.SendMessage(ctx, "u1", "", "hello")
	require.NoError(t, err)

	// Another user must not be able to post into u1's conversation.
	_, err = svc.SendMessage(ctx, "u2", result.ConversationID, "intruding")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// The aborted turn left no side effects.
	messages, err := db.GetMessages(ctx, result.ConversationID, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestTurnOrderingAlternates(t *testing.T) {
	ctx := context.Background()
	svc, db, _, _ := newTestService(t, nil)

	result, err := svc.SendMessage(ctx, "u1", "", "turn one")
	require.NoError(t, err)
	for _, msg := range []string{"turn two", "turn three"} {
		_, err = svc.SendMessage(ctx, "u1", result.ConversationID, msg)
		require.NoError(t, err)
	}

	messages, err := db.GetMessages(ctx, result.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 6)
	for i, msg := range messages {
		if i > 0 {
			assert.False(t, msg.CreatedAt.Before(messages[i-1].CreatedAt), "messages out of order at %d", i)
		}
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		assert.Equal(t, want, msg.Role, "role at %d", i)
	}
}

func TestHistoryWindowLimitsModelInput(t *testing.T) {
	ctx := context.Background()
	svc, _, _, gateway := newTestService(t, nil)

	result, err := svc.SendMessage(ctx, "u1", "", "first")
	require.NoError(t, err)
	// 12 turns leave 24 messages, beyond the 20-message window.
	for i := 0; i < 11; i++ {
		_, err = svc.SendMessage(ctx, "u1", result.ConversationID, "again")
		require.NoError(t, err)
	}

	require.NotNil(t, gateway.lastRequest)
	// System prompt plus the windowed history.
	assert.Len(t, gateway.lastRequest.Messages, 21)
	assert.Equal(t, "system", gateway.lastRequest.Messages[0].Role)
	// The window drops the oldest messages.
	for _, m := range gateway.lastRequest.Messages[1:] {
		assert.NotEqual(t, "first", m.Content)
	}
}

func TestSendMessageStreamMatchesBlocking(t *testing.T) {
	ctx := context.Background()
	svc, db, _, _ := newTestService(t, nil)

	var deltas []string
	result, err := svc.SendMessageStream(ctx, "u1", "", "stream me", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, deltas)
	assert.Equal(t, result.Response, strings.Join(deltas, ""))

	// Persisted content equals the reconstructed stream.
	messages, err := db.GetMessages(ctx, result.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, result.Response, messages[1].Content)

	// A blocking turn with the same input yields the same text (the mock
	// gateway is deterministic for a given last user message).
	blocking, err := svc.SendMessage(ctx, "u2", "", "stream me")
	require.NoError(t, err)
	assert.Equal(t, blocking.Response, result.Response)
}

func TestSendMessageStreamFailureDiscardsPartialReply(t *testing.T) {
	ctx := context.Background()
	svc, db, memories, _ := newTestService(t, nil)

	first, err := svc.SendMessage(ctx, "u1", "", "setup turn")
	require.NoError(t, err)

	boom := errors.New("client disconnected")
	_, err = svc.SendMessageStream(ctx, "u1", first.ConversationID, "failing turn", func(delta string) error {
		return boom
	})
	require.Error(t, err)

	// The user message was durably persisted before the stream, but the
	// partial assistant reply was discarded.
	messages, err := db.GetMessages(ctx, first.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, domain.RoleUser, messages[2].Role)
	assert.Equal(t, "failing turn", messages[2].Content)

	// No memory was written for the aborted turn.
	stored, err := memories.SearchMemories(ctx, "u1", "failing turn", 5)
	require.NoError(t, err)
	for _, m := range stored {
		assert.NotContains(t, m.Content, "failing turn")
	}
}

func TestMemoryFailureDoesNotFailTurn(t *testing.T) {
	ctx := context.Background()
	svc, db, _, _ := newTestService(t, failingMemories{})

	result, err := svc.SendMessage(ctx, "u1", "", "memory is down")
	require.NoError(t, err)
	require.NotEmpty(t, result.Response)

	messages, err := db.GetMessages(ctx, result.ConversationID, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestMemoryIsolationAcrossUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, memories, _ := newTestService(t, nil)

	_, err := svc.SendMessage(ctx, "alice", "", "alice's secret plan")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "bob", "", "bob's training schedule")
	require.NoError(t, err)

	stored, err := memories.SearchMemories(ctx, "alice", "secret plan", 5)
	require.NoError(t, err)
	for _, m := range stored {
		assert.NotContains(t, m.Content, "bob's")
	}
}

func TestListAndDeleteConversations(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t, nil)

	first, err := svc.SendMessage(ctx, "u1", "", "one")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := svc.SendMessage(ctx, "u1", "", "two")
	require.NoError(t, err)

	conversations, err := svc.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	// Most recently updated first.
	assert.Equal(t, second.ConversationID, conversations[0].ConversationID)

	require.NoError(t, svc.DeleteConversation(ctx, "u1", first.ConversationID))
	conversations, err = svc.ListConversations(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, conversations, 1)

	err = svc.DeleteConversation(ctx, "u1", first.ConversationID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteUserMemories(t *testing.T) {
	ctx := context.Background()
	svc, _, memories, _ := newTestService(t, nil)

	_, err := svc.SendMessage(ctx, "u1", "", "remember this")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUserMemories(ctx, "u1"))

	stored, err := memories.SearchMemories(ctx, "u1", "remember", 5)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
