package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/medassist/chat-backend/internal/core/domain"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	has_attachment BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_conversation ON conversation_turns(conversation_id, created_at ASC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ConversationRepository) CreateConversation(ctx context.Context, userID, title string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conversation := domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversations (id, user_id, title, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`, conversation.ID, conversation.UserID, conversation.Title, conversation.CreatedAt, conversation.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, created_at, updated_at
FROM conversations
WHERE id = $1
`, id)

	var conversation domain.Conversation
	if err := row.Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.Title,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrConversationNotFound, "get conversation", err)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, created_at, updated_at
FROM conversations
WHERE user_id = $1
ORDER BY updated_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Conversation, 0, 16)
	for rows.Next() {
		var conversation domain.Conversation
		if err := rows.Scan(
			&conversation.ID,
			&conversation.UserID,
			&conversation.Title,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

func (r *ConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrConversationNotFound, "delete conversation", sql.ErrNoRows)
	}
	return nil
}

// AppendExchange writes both turns of one exchange and bumps the
// conversation timestamp in a single transaction. A missing conversation is
// created first, so exchanges arriving from the worker before the first
// explicit create still land.
func (r *ConversationRepository) AppendExchange(ctx context.Context, userTurn, assistantTurn domain.ConversationTurn) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exchange tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
INSERT INTO conversations (id, user_id, title, created_at, updated_at)
VALUES ($1, $2, '', $3, $3)
ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
`, userTurn.ConversationID, userTurn.UserID, now)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	for _, turn := range []domain.ConversationTurn{userTurn, assistantTurn} {
		createdAt := turn.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO conversation_turns (id, user_id, conversation_id, role, content, has_attachment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, turn.ID, turn.UserID, turn.ConversationID, turn.Role, turn.Content, turn.HasAttachment, createdAt)
		if err != nil {
			return fmt.Errorf("append %s turn: %w", turn.Role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exchange tx: %w", err)
	}
	return nil
}

func (r *ConversationRepository) ListTurns(ctx context.Context, conversationID string) ([]domain.ConversationTurn, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, conversation_id, role, content, has_attachment, created_at
FROM conversation_turns
WHERE conversation_id = $1
ORDER BY created_at ASC, id ASC
`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationTurn, 0, 32)
	for rows.Next() {
		var turn domain.ConversationTurn
		if err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&turn.ConversationID,
			&turn.Role,
			&turn.Content,
			&turn.HasAttachment,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

// UpdateTitle sets the conversation title generated after the first message.
func (r *ConversationRepository) UpdateTitle(ctx context.Context, id, title string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE conversations SET title = $2, updated_at = $3 WHERE id = $1
`, id, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update title rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrConversationNotFound, "update title", sql.ErrNoRows)
	}
	return nil
}
