package ports

import (
	"context"

	"github.com/medassist/chat-backend/internal/core/domain"
)

// ChatStreamer is the inbound contract for the streamed response pipeline.
// Validation errors are returned synchronously; everything after routing is
// delivered as generation events on the returned channel.
type ChatStreamer interface {
	Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.GenerationEvent, error)
}

// MemoryService is the bounded per-key rolling memory of past exchanges.
type MemoryService interface {
	Append(ctx context.Context, key string, record domain.MemoryRecord) error
	List(ctx context.Context, key string) ([]domain.MemoryRecord, error)
	Recall(ctx context.Context, key, query string, topK int) (string, error)
	DeleteByConversation(ctx context.Context, key, conversationID string) error
}

// ExchangePersister is the inbound contract for asynchronous exchange
// persistence (the worker side of the queue handoff).
type ExchangePersister interface {
	PersistExchange(ctx context.Context, exchange domain.CompletedExchange) error
}

// TitleService generates a short conversation title from the first message.
type TitleService interface {
	GenerateTitle(ctx context.Context, req domain.TitleRequest) (string, error)
}
