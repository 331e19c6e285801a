package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jetaide/backend/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS goals (
			goal_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			category TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id, status)`,
		`CREATE TABLE IF NOT EXISTS progress_entries (
			progress_id TEXT PRIMARY KEY,
			goal_id TEXT NOT NULL,
			note TEXT NOT NULL,
			mood TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (goal_id) REFERENCES goals(goal_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_goal ON progress_entries(goal_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateConversation inserts a new conversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ConversationID, conv.UserID, nullString(conv.Title), conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation returns the conversation if it exists and belongs to the user.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, title, created_at, updated_at FROM conversations WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID,
	)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, title, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

// SetConversationTitle sets the title only when no title has been set yet.
func (s *SQLiteStore) SetConversationTitle(ctx context.Context, conversationID, title string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ? WHERE conversation_id = ? AND (title IS NULL OR title = '')`,
		title, conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to set conversation title: %w", err)
	}
	return nil
}

// DeleteConversation deletes a conversation owned by the user and its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateMessage appends a message and bumps the conversation's updated_at.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ConversationID, string(msg.Role), msg.Content, msg.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`,
		msg.CreatedAt, msg.ConversationID,
	); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return tx.Commit()
}

// GetMessages returns the conversation's messages oldest-first. A limit > 0
// keeps only the most recent limit messages.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at DESC`
	args := []interface{}{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role string
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CreateGoal inserts a new goal.
func (s *SQLiteStore) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (goal_id, user_id, title, description, category, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.GoalID, goal.UserID, goal.Title, nullString(goal.Description), goal.Category, string(goal.Status), goal.CreatedAt, goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// GetGoal returns the goal if it exists and belongs to the user.
func (s *SQLiteStore) GetGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT goal_id, user_id, title, description, category, status, created_at, updated_at FROM goals WHERE goal_id = ? AND user_id = ?`,
		goalID, userID,
	)
	goal, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// ListGoals returns all goals for the user.
func (s *SQLiteStore) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	return s.listGoals(ctx, `SELECT goal_id, user_id, title, description, category, status, created_at, updated_at FROM goals WHERE user_id = ? ORDER BY created_at`, userID)
}

// ListActiveGoals returns the user's goals with status 'active'.
func (s *SQLiteStore) ListActiveGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	return s.listGoals(ctx, `SELECT goal_id, user_id, title, description, category, status, created_at, updated_at FROM goals WHERE user_id = ? AND status = 'active' ORDER BY created_at`, userID)
}

func (s *SQLiteStore) listGoals(ctx context.Context, query string, args ...interface{}) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *goal)
	}
	return goals, rows.Err()
}

// UpdateGoal applies a partial update to a goal owned by the user.
func (s *SQLiteStore) UpdateGoal(ctx context.Context, userID, goalID string, update domain.GoalUpdate) (*domain.Goal, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []interface{}
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	args = append(args, goalID, userID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE goals SET %s WHERE goal_id = ? AND user_id = ?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetGoal(ctx, userID, goalID)
}

// DeleteGoal deletes a goal owned by the user. Progress entries cascade.
func (s *SQLiteStore) DeleteGoal(ctx context.Context, userID, goalID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM goals WHERE goal_id = ? AND user_id = ?`,
		goalID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateProgress inserts a progress entry.
func (s *SQLiteStore) CreateProgress(ctx context.Context, entry *domain.ProgressEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress_entries (progress_id, goal_id, note, mood, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ProgressID, entry.GoalID, entry.Note, nullString(entry.Mood), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create progress entry: %w", err)
	}
	return nil
}

// ListProgress returns a goal's progress entries, newest first.
func (s *SQLiteStore) ListProgress(ctx context.Context, goalID string) ([]domain.ProgressEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT progress_id, goal_id, note, mood, created_at FROM progress_entries WHERE goal_id = ? ORDER BY created_at DESC`,
		goalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ProgressEntry
	for rows.Next() {
		var e domain.ProgressEntry
		var mood sql.NullString
		if err := rows.Scan(&e.ProgressID, &e.GoalID, &e.Note, &mood, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		e.Mood = mood.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row scanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	var title sql.NullString
	if err := row.Scan(&conv.ConversationID, &conv.UserID, &title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	conv.Title = title.String
	return &conv, nil
}

func scanGoal(row scanner) (*domain.Goal, error) {
	var goal domain.Goal
	var description sql.NullString
	var status string
	if err := row.Scan(&goal.GoalID, &goal.UserID, &goal.Title, &description, &goal.Category, &status, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
		return nil, err
	}
	goal.Description = description.String
	goal.Status = domain.GoalStatus(status)
	return &goal, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
