package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/core/ports"
)

// PersistUseCase consumes completed exchanges off the queue and writes them
// to durable storage: the conversation transcript and the rolling memory.
// The transcript write is authoritative; a memory failure is logged and the
// exchange still counts as persisted.
type PersistUseCase struct {
	store  ports.ConversationStore
	memory ports.MemoryService
	logger *slog.Logger
}

func NewPersistUseCase(store ports.ConversationStore, memory ports.MemoryService, logger *slog.Logger) *PersistUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistUseCase{store: store, memory: memory, logger: logger}
}

func (uc *PersistUseCase) PersistExchange(ctx context.Context, exchange domain.CompletedExchange) error {
	userTurn := domain.ConversationTurn{
		ID:             uuid.NewString(),
		UserID:         exchange.UserID,
		ConversationID: exchange.ConversationID,
		Role:           "user",
		Content:        exchange.UserMessage,
		HasAttachment:  exchange.HasAttachment,
		CreatedAt:      exchange.StartedAt,
	}
	assistantTurn := domain.ConversationTurn{
		ID:             uuid.NewString(),
		UserID:         exchange.UserID,
		ConversationID: exchange.ConversationID,
		Role:           "assistant",
		Content:        exchange.AssistantResponse,
		CreatedAt:      exchange.CompletedAt,
	}
	if err := uc.store.AppendExchange(ctx, userTurn, assistantTurn); err != nil {
		return fmt.Errorf("append exchange %s: %w", exchange.ExchangeID, err)
	}

	record := domain.MemoryRecord{
		ID:                exchange.ExchangeID,
		MemoryKey:         exchange.MemoryKey,
		ConversationID:    exchange.ConversationID,
		UserMessage:       exchange.UserMessage,
		AssistantResponse: exchange.AssistantResponse,
		CreatedAt:         exchange.CompletedAt,
	}
	if err := uc.memory.Append(ctx, exchange.MemoryKey, record); err != nil {
		uc.logger.Error("memory_append_failed",
			"exchange_id", exchange.ExchangeID,
			"memory_key", exchange.MemoryKey,
			"error", err,
		)
	}
	return nil
}
