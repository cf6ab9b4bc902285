package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/medassist/chat-backend/internal/core/domain"
)

func TestConversationRepositoryGetConversationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	mock.ExpectQuery("FROM conversations").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}))

	_, err = repo.GetConversation(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConversationRepositoryListConversations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}).
		AddRow("c-2", "u-1", "Newer", now, now).
		AddRow("c-1", "u-1", "Older", now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery("FROM conversations").
		WithArgs("u-1").
		WillReturnRows(rows)

	conversations, err := repo.ListConversations(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(conversations) != 2 || conversations[0].ID != "c-2" {
		t.Fatalf("unexpected conversations %+v", conversations)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConversationRepositoryAppendExchangeTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	now := time.Now().UTC()
	userTurn := domain.ConversationTurn{
		ID: "t-1", UserID: "u-1", ConversationID: "c-1",
		Role: "user", Content: "hello", CreatedAt: now,
	}
	assistantTurn := domain.ConversationTurn{
		ID: "t-2", UserID: "u-1", ConversationID: "c-1",
		Role: "assistant", Content: "hi", CreatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("c-1", "u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs("t-1", "u-1", "c-1", "user", "hello", false, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs("t-2", "u-1", "c-1", "assistant", "hi", false, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.AppendExchange(context.Background(), userTurn, assistantTurn); err != nil {
		t.Fatalf("AppendExchange() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConversationRepositoryAppendExchangeRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	now := time.Now().UTC()
	userTurn := domain.ConversationTurn{ID: "t-1", UserID: "u-1", ConversationID: "c-1", Role: "user", Content: "hello", CreatedAt: now}
	assistantTurn := domain.ConversationTurn{ID: "t-2", UserID: "u-1", ConversationID: "c-1", Role: "assistant", Content: "hi", CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("c-1", "u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs("t-1", "u-1", "c-1", "user", "hello", false, now).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	if err := repo.AppendExchange(context.Background(), userTurn, assistantTurn); err == nil {
		t.Fatal("expected error when turn insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConversationRepositoryDeleteConversationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	mock.ExpectExec("DELETE FROM conversations").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DeleteConversation(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConversationRepositoryUpdateTitle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	mock.ExpectExec("UPDATE conversations").
		WithArgs("c-1", "Skin rash question", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateTitle(context.Background(), "c-1", "Skin rash question"); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
