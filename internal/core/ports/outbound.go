package ports

import (
	"context"

	"github.com/medassist/chat-backend/internal/core/domain"
)

// Embedder produces dense and sparse query vectors for a text.
type Embedder interface {
	EmbedDense(ctx context.Context, text string) ([]float32, error)
	EmbedSparse(ctx context.Context, text string) (domain.SparseVector, error)
}

// VectorStore exposes named collections holding dense(384, cosine) + sparse
// points. EnsureCollection creates the collection if missing.
type VectorStore interface {
	EnsureCollection(ctx context.Context, collection string) error
	QueryDense(ctx context.Context, collection string, vector []float32, limit int) (domain.RankedList, error)
	QuerySparse(ctx context.Context, collection string, vector domain.SparseVector, limit int) (domain.RankedList, error)
	Scroll(ctx context.Context, collection string, limit int) ([]domain.CandidateDocument, error)
	Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error
	Count(ctx context.Context, collection string) (int, error)
	Delete(ctx context.Context, collection string, ids []string) error
	DeleteByField(ctx context.Context, collection, field, value string) error
}

// Classifier labels text and image input against candidate labels.
// ClassifyDisease produces the fine-grained description and is only called
// when the general image label is non-generic.
type Classifier interface {
	ClassifyText(ctx context.Context, text string, candidates []string) (string, error)
	ClassifyImage(ctx context.Context, attachment domain.Attachment, candidates []string) (string, error)
	ClassifyDisease(ctx context.Context, attachment domain.Attachment) (string, error)
}

// Generator produces streamed or single-shot model output.
type Generator interface {
	GenerateStream(ctx context.Context, req domain.GenerationRequest) (<-chan domain.GenerationEvent, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ConversationStore persists conversations and their append-only turns.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID, title string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	UpdateTitle(ctx context.Context, id, title string) error
	AppendExchange(ctx context.Context, userTurn, assistantTurn domain.ConversationTurn) error
	ListTurns(ctx context.Context, conversationID string) ([]domain.ConversationTurn, error)
}

// ExchangeQueue hands completed exchanges off the request path.
type ExchangeQueue interface {
	PublishExchangeCompleted(ctx context.Context, exchange domain.CompletedExchange) error
	SubscribeExchangeCompleted(ctx context.Context, handler func(context.Context, domain.CompletedExchange) error) error
}

// PromptStore resolves prompt profiles by role name, falling back to
// compiled-in defaults when a profile is absent.
type PromptStore interface {
	Profile(ctx context.Context, role string) (domain.PromptProfile, error)
}

// PipelineObserver records pipeline-level measurements. Implementations live
// with the metrics registry; a no-op implementation is valid.
type PipelineObserver interface {
	ObserveRoute(mode domain.RouteMode, label string)
	ObserveFusedContext(docs int)
	ObserveStreamOutcome(outcome string)
}

// NopPipelineObserver discards all measurements.
type NopPipelineObserver struct{}

func (NopPipelineObserver) ObserveRoute(domain.RouteMode, string) {}
func (NopPipelineObserver) ObserveFusedContext(int)               {}
func (NopPipelineObserver) ObserveStreamOutcome(string)           {}
