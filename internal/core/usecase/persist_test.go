package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medassist/chat-backend/internal/core/domain"
)

type fakeConversationStore struct {
	appendErr error
	exchanges [][2]domain.ConversationTurn
}

func (f *fakeConversationStore) CreateConversation(context.Context, string, string) (*domain.Conversation, error) {
	return nil, nil
}

func (f *fakeConversationStore) GetConversation(context.Context, string) (*domain.Conversation, error) {
	return nil, nil
}

func (f *fakeConversationStore) ListConversations(context.Context, string) ([]domain.Conversation, error) {
	return nil, nil
}

func (f *fakeConversationStore) DeleteConversation(context.Context, string) error {
	return nil
}

func (f *fakeConversationStore) UpdateTitle(context.Context, string, string) error {
	return nil
}

func (f *fakeConversationStore) AppendExchange(_ context.Context, userTurn, assistantTurn domain.ConversationTurn) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.exchanges = append(f.exchanges, [2]domain.ConversationTurn{userTurn, assistantTurn})
	return nil
}

func (f *fakeConversationStore) ListTurns(context.Context, string) ([]domain.ConversationTurn, error) {
	return nil, nil
}

type recordingMemoryService struct {
	fakeMemoryService
	appendErr error
	appended  []domain.MemoryRecord
}

func (r *recordingMemoryService) Append(_ context.Context, _ string, record domain.MemoryRecord) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.appended = append(r.appended, record)
	return nil
}

func sampleExchange() domain.CompletedExchange {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.CompletedExchange{
		ExchangeID:        "ex-1",
		UserID:            "user-1",
		ConversationID:    "conv-1",
		MemoryKey:         "user-1",
		UserMessage:       "is this eczema?",
		HasAttachment:     true,
		AssistantResponse: "it could be, see a dermatologist",
		StartedAt:         started,
		CompletedAt:       started.Add(3 * time.Second),
	}
}

func TestPersistExchangeWritesTurnsAndMemory(t *testing.T) {
	store := &fakeConversationStore{}
	memory := &recordingMemoryService{}
	uc := NewPersistUseCase(store, memory, nil)

	if err := uc.PersistExchange(context.Background(), sampleExchange()); err != nil {
		t.Fatalf("persist exchange: %v", err)
	}

	if len(store.exchanges) != 1 {
		t.Fatalf("expected one appended exchange, got %d", len(store.exchanges))
	}
	userTurn, assistantTurn := store.exchanges[0][0], store.exchanges[0][1]
	if userTurn.Role != "user" || userTurn.Content != "is this eczema?" || !userTurn.HasAttachment {
		t.Fatalf("unexpected user turn: %+v", userTurn)
	}
	if assistantTurn.Role != "assistant" || assistantTurn.Content != "it could be, see a dermatologist" {
		t.Fatalf("unexpected assistant turn: %+v", assistantTurn)
	}
	if len(memory.appended) != 1 || memory.appended[0].ID != "ex-1" {
		t.Fatalf("expected exchange appended to memory, got %+v", memory.appended)
	}
}

func TestPersistExchangeStoreFailureIsFatal(t *testing.T) {
	store := &fakeConversationStore{appendErr: errors.New("database down")}
	memory := &recordingMemoryService{}
	uc := NewPersistUseCase(store, memory, nil)

	if err := uc.PersistExchange(context.Background(), sampleExchange()); err == nil {
		t.Fatal("expected error when transcript write fails")
	}
	if len(memory.appended) != 0 {
		t.Fatalf("expected no memory write after store failure, got %d", len(memory.appended))
	}
}

func TestPersistExchangeMemoryFailureIsNonFatal(t *testing.T) {
	store := &fakeConversationStore{}
	memory := &recordingMemoryService{appendErr: errors.New("vector store down")}
	uc := NewPersistUseCase(store, memory, nil)

	if err := uc.PersistExchange(context.Background(), sampleExchange()); err != nil {
		t.Fatalf("expected memory failure swallowed, got %v", err)
	}
	if len(store.exchanges) != 1 {
		t.Fatalf("expected transcript written, got %d exchanges", len(store.exchanges))
	}
}
