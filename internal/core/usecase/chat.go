package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/core/ports"
)

const exchangePublishTimeout = 5 * time.Second

// ChatUseCase runs the hybrid retrieval pipeline behind the streaming chat
// endpoint: classify, route, retrieve, fuse, recall memory, generate.
type ChatUseCase struct {
	embedder   ports.Embedder
	knowledge  ports.VectorStore
	classifier ports.Classifier
	generator  ports.Generator
	memory     ports.MemoryService
	prompts    ports.PromptStore
	queue      ports.ExchangeQueue
	observer   ports.PipelineObserver
	limits     domain.PipelineLimits
	logger     *slog.Logger
}

func NewChatUseCase(
	embedder ports.Embedder,
	knowledge ports.VectorStore,
	classifier ports.Classifier,
	generator ports.Generator,
	memory ports.MemoryService,
	prompts ports.PromptStore,
	queue ports.ExchangeQueue,
	observer ports.PipelineObserver,
	limits domain.PipelineLimits,
	logger *slog.Logger,
) *ChatUseCase {
	if limits.ClassifyTimeout <= 0 {
		limits.ClassifyTimeout = 10 * time.Second
	}
	if limits.RetrievalTimeout <= 0 {
		limits.RetrievalTimeout = 10 * time.Second
	}
	if limits.GenerationTimeout <= 0 {
		limits.GenerationTimeout = 2 * time.Minute
	}
	if limits.HybridCandidates <= 0 {
		limits.HybridCandidates = 10
	}
	if limits.ContextTopN <= 0 {
		limits.ContextTopN = 2
	}
	if limits.MemoryTopK <= 0 {
		limits.MemoryTopK = 5
	}
	if observer == nil {
		observer = ports.NopPipelineObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		embedder:   embedder,
		knowledge:  knowledge,
		classifier: classifier,
		generator:  generator,
		memory:     memory,
		prompts:    prompts,
		queue:      queue,
		observer:   observer,
		limits:     limits,
		logger:     logger,
	}
}

// Stream executes the pipeline for one user message and returns the event
// channel of the resulting generation. The channel is closed after exactly
// one terminal event; the completed exchange is handed off to the queue
// after the terminal event has been delivered.
func (uc *ChatUseCase) Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.GenerationEvent, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && req.Attachment == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat stream",
			fmt.Errorf("message must carry text content or an attachment"))
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat stream",
			fmt.Errorf("user_id is required"))
	}
	startedAt := time.Now().UTC()

	textLabel, imageLabel := uc.classifyInput(ctx, content, req.Attachment)
	decision := DecideRoute(textLabel, imageLabel)
	uc.observer.ObserveRoute(decision.Mode, decision.Domain)
	uc.logger.Info("route_decided",
		"conversation_id", req.ConversationID,
		"mode", string(decision.Mode),
		"domain", decision.Domain,
		"text_label", textLabel,
		"image_label", imageLabel,
	)

	diseaseDetail := ""
	if decision.RefineImage && req.Attachment != nil {
		diseaseDetail = uc.refineImage(ctx, *req.Attachment)
	}

	query := content
	if query == "" {
		query = diseaseDetail
	}
	if query == "" {
		query = imageLabel
	}

	knowledgeContext := ""
	if decision.Mode == domain.RouteRetrieval {
		fused, err := uc.retrieveContext(ctx, decision.Domain, query)
		if err != nil {
			return nil, domain.WrapError(domain.ErrRetrieval, "retrieve context", err)
		}
		uc.observer.ObserveFusedContext(len(fused.Documents))
		knowledgeContext = fused.Context
	}

	recent, err := uc.memory.Recall(ctx, req.UserID, query, uc.limits.MemoryTopK)
	if err != nil {
		uc.logger.Warn("memory_recall_failed", "user_id", req.UserID, "error", err)
		recent = ""
	}

	role := domain.RoleDirectResponder
	if decision.Mode == domain.RouteRetrieval {
		role = domain.RoleRAGResponder
	}
	profile, err := uc.prompts.Profile(ctx, role)
	if err != nil {
		uc.logger.Warn("prompt_profile_fallback", "role", role, "error", err)
		profile = domain.PromptProfile{}
	}

	genCtx, cancel := context.WithTimeout(ctx, uc.limits.GenerationTimeout)
	events, err := uc.generator.GenerateStream(genCtx, domain.GenerationRequest{
		Prompt:             content,
		Context:            knowledgeContext,
		DiseaseDetail:      diseaseDetail,
		RecentConversation: recent,
		Attachment:         req.Attachment,
		Profile:            profile,
	})
	if err != nil {
		cancel()
		return nil, domain.WrapError(domain.ErrGeneration, "start generation", err)
	}

	out := make(chan domain.GenerationEvent)
	go uc.forward(ctx, cancel, req, content, startedAt, events, out)
	return out, nil
}

// forward relays generation events to the consumer and performs the
// post-stream handoff. The exchange is published only after the Done event
// has been delivered, so a cancelled or failed stream never persists a
// partial exchange. Emits select on the request context, not the generation
// timeout: a timed-out generation still delivers its terminal error event
// to a connected client.
func (uc *ChatUseCase) forward(
	ctx context.Context,
	cancel context.CancelFunc,
	req domain.ChatRequest,
	content string,
	startedAt time.Time,
	events <-chan domain.GenerationEvent,
	out chan<- domain.GenerationEvent,
) {
	defer func() {
		cancel()
		for range events {
		}
	}()
	defer close(out)

	for event := range events {
		switch {
		case event.Err != nil:
			uc.observer.ObserveStreamOutcome("error")
			emit(ctx, out, event)
			return
		case event.Done:
			uc.observer.ObserveStreamOutcome("done")
			if emit(ctx, out, event) {
				uc.handOffExchange(req, content, startedAt, event.Text)
			}
			return
		default:
			if !emit(ctx, out, event) {
				uc.observer.ObserveStreamOutcome("cancelled")
				return
			}
		}
	}

	uc.observer.ObserveStreamOutcome("error")
	emit(ctx, out, domain.GenerationEvent{
		Err: domain.WrapError(domain.ErrGeneration, "generation stream",
			fmt.Errorf("stream ended without terminal event")),
	})
}

func emit(ctx context.Context, out chan<- domain.GenerationEvent, event domain.GenerationEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (uc *ChatUseCase) handOffExchange(req domain.ChatRequest, content string, startedAt time.Time, answer string) {
	exchange := domain.CompletedExchange{
		ExchangeID:        uuid.NewString(),
		UserID:            req.UserID,
		ConversationID:    req.ConversationID,
		MemoryKey:         req.UserID,
		UserMessage:       content,
		HasAttachment:     req.Attachment != nil,
		AssistantResponse: answer,
		StartedAt:         startedAt,
		CompletedAt:       time.Now().UTC(),
	}

	publishCtx, cancel := context.WithTimeout(context.Background(), exchangePublishTimeout)
	defer cancel()
	if err := uc.queue.PublishExchangeCompleted(publishCtx, exchange); err != nil {
		uc.logger.Error("exchange_handoff_failed",
			"conversation_id", req.ConversationID,
			"exchange_id", exchange.ExchangeID,
			"error", err,
		)
	}
}

// classifyInput runs the text and image classifiers concurrently. A failed
// or absent classification yields the generic label so the pipeline degrades
// to direct generation instead of failing the request.
func (uc *ChatUseCase) classifyInput(ctx context.Context, content string, attachment *domain.Attachment) (string, string) {
	candidates := uc.candidateLabels(ctx)

	cctx, cancel := context.WithTimeout(ctx, uc.limits.ClassifyTimeout)
	defer cancel()

	textLabel := domain.LabelGeneric
	imageLabel := domain.LabelGeneric

	var wg sync.WaitGroup
	if content != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label, err := uc.classifier.ClassifyText(cctx, content, candidates)
			if err != nil {
				uc.logger.Warn("text_classification_failed", "error", err)
				label = domain.LabelGeneric
			}
			textLabel = label
		}()
	}
	if attachment != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label, err := uc.classifier.ClassifyImage(cctx, *attachment, candidates)
			if err != nil {
				uc.logger.Warn("image_classification_failed", "error", err)
				label = domain.LabelGeneric
			}
			imageLabel = label
		}()
	}
	wg.Wait()

	return textLabel, imageLabel
}

func (uc *ChatUseCase) candidateLabels(ctx context.Context) []string {
	profile, err := uc.prompts.Profile(ctx, domain.RoleClassifier)
	if err != nil || len(profile.Fields) == 0 {
		if err != nil {
			uc.logger.Warn("classifier_profile_fallback", "error", err)
		}
		return []string{domain.LabelGeneric}
	}
	return profile.Fields
}

func (uc *ChatUseCase) refineImage(ctx context.Context, attachment domain.Attachment) string {
	cctx, cancel := context.WithTimeout(ctx, uc.limits.ClassifyTimeout)
	defer cancel()

	detail, err := uc.classifier.ClassifyDisease(cctx, attachment)
	if err != nil {
		uc.logger.Warn("disease_refinement_failed", "error", err)
		return ""
	}
	return detail
}

// retrieveContext fans the hybrid query out to the dense and sparse indexes
// of the routed collection and fuses the two result lists.
func (uc *ChatUseCase) retrieveContext(ctx context.Context, collection, query string) (domain.FusedContext, error) {
	rctx, cancel := context.WithTimeout(ctx, uc.limits.RetrievalTimeout)
	defer cancel()

	denseVec, err := uc.embedder.EmbedDense(rctx, query)
	if err != nil {
		return domain.FusedContext{}, fmt.Errorf("embed query: %w", err)
	}
	sparseVec, err := uc.embedder.EmbedSparse(rctx, query)
	if err != nil {
		return domain.FusedContext{}, fmt.Errorf("sparse encode query: %w", err)
	}

	var (
		dense, sparse       domain.RankedList
		denseErr, sparseErr error
		wg                  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		dense, denseErr = uc.knowledge.QueryDense(rctx, collection, denseVec, uc.limits.HybridCandidates)
	}()
	go func() {
		defer wg.Done()
		sparse, sparseErr = uc.knowledge.QuerySparse(rctx, collection, sparseVec, uc.limits.HybridCandidates)
	}()
	wg.Wait()

	if denseErr != nil {
		return domain.FusedContext{}, fmt.Errorf("dense query: %w", denseErr)
	}
	if sparseErr != nil {
		return domain.FusedContext{}, fmt.Errorf("sparse query: %w", sparseErr)
	}

	return Fuse(dense, sparse, uc.limits.ContextTopN), nil
}
