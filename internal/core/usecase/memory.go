package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/core/ports"
)

// memoryMaxRecords caps the number of exchanges retained per memory key.
// Once the cap is reached the oldest record is evicted before each insert.
const memoryMaxRecords = 50

const (
	payloadMemoryKey      = "memory_key"
	payloadConversationID = "conversation_id"
	payloadUserMessage    = "user_message"
	payloadBotResponse    = "bot_response"
	payloadTimestamp      = "timestamp"
)

// MemoryUseCase keeps a bounded per-user conversational memory in a
// dedicated vector collection per key. Appends are serialized per key so the
// count-evict-insert sequence cannot interleave and overshoot the cap.
type MemoryUseCase struct {
	embedder  ports.Embedder
	store     ports.VectorStore
	keyPrefix string
	recallK   int
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryUseCase(embedder ports.Embedder, store ports.VectorStore, keyPrefix string, recallCandidates int, logger *slog.Logger) *MemoryUseCase {
	if keyPrefix == "" {
		keyPrefix = "memory_"
	}
	if recallCandidates <= 0 {
		recallCandidates = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryUseCase{
		embedder:  embedder,
		store:     store,
		keyPrefix: keyPrefix,
		recallK:   recallCandidates,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (uc *MemoryUseCase) collection(key string) string {
	return uc.keyPrefix + key
}

func (uc *MemoryUseCase) keyLock(key string) *sync.Mutex {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	lock, ok := uc.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		uc.locks[key] = lock
	}
	return lock
}

// Append stores one completed exchange under the key, evicting the oldest
// record first when the key already holds the maximum.
func (uc *MemoryUseCase) Append(ctx context.Context, key string, record domain.MemoryRecord) error {
	lock := uc.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	collection := uc.collection(key)
	if err := uc.store.EnsureCollection(ctx, collection); err != nil {
		return fmt.Errorf("ensure memory collection: %w", err)
	}

	count, err := uc.store.Count(ctx, collection)
	if err != nil {
		return fmt.Errorf("count memory records: %w", err)
	}
	if count >= memoryMaxRecords {
		if err := uc.evictOldest(ctx, collection); err != nil {
			return fmt.Errorf("evict oldest memory record: %w", err)
		}
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	text := record.UserMessage + "\n" + record.AssistantResponse
	dense, err := uc.embedder.EmbedDense(ctx, text)
	if err != nil {
		return fmt.Errorf("embed memory record: %w", err)
	}
	sparse, err := uc.embedder.EmbedSparse(ctx, text)
	if err != nil {
		return fmt.Errorf("sparse encode memory record: %w", err)
	}

	point := domain.VectorPoint{
		ID:     record.ID,
		Dense:  dense,
		Sparse: sparse,
		Payload: map[string]any{
			payloadMemoryKey:      key,
			payloadConversationID: record.ConversationID,
			payloadUserMessage:    record.UserMessage,
			payloadBotResponse:    record.AssistantResponse,
			payloadTimestamp:      record.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := uc.store.Upsert(ctx, collection, []domain.VectorPoint{point}); err != nil {
		return fmt.Errorf("upsert memory record: %w", err)
	}
	return nil
}

func (uc *MemoryUseCase) evictOldest(ctx context.Context, collection string) error {
	docs, err := uc.store.Scroll(ctx, collection, memoryMaxRecords+1)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	oldestID := docs[0].ID
	oldestAt := recordTimestamp(docs[0])
	for _, doc := range docs[1:] {
		at := recordTimestamp(doc)
		if at.Before(oldestAt) || (at.Equal(oldestAt) && doc.ID < oldestID) {
			oldestID = doc.ID
			oldestAt = at
		}
	}
	return uc.store.Delete(ctx, collection, []string{oldestID})
}

// List returns every record under the key ordered oldest first.
func (uc *MemoryUseCase) List(ctx context.Context, key string) ([]domain.MemoryRecord, error) {
	collection := uc.collection(key)
	if err := uc.store.EnsureCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("ensure memory collection: %w", err)
	}
	docs, err := uc.store.Scroll(ctx, collection, memoryMaxRecords)
	if err != nil {
		return nil, fmt.Errorf("scroll memory records: %w", err)
	}

	records := make([]domain.MemoryRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, recordFromDocument(key, doc))
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// Recall runs a hybrid query over the key's memory and returns the top
// matching exchanges rendered as alternating user and assistant lines.
func (uc *MemoryUseCase) Recall(ctx context.Context, key, query string, topK int) (string, error) {
	if query == "" || topK <= 0 {
		return "", nil
	}

	collection := uc.collection(key)
	if err := uc.store.EnsureCollection(ctx, collection); err != nil {
		return "", fmt.Errorf("ensure memory collection: %w", err)
	}

	dense, err := uc.embedder.EmbedDense(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed memory query: %w", err)
	}
	sparse, err := uc.embedder.EmbedSparse(ctx, query)
	if err != nil {
		return "", fmt.Errorf("sparse encode memory query: %w", err)
	}

	denseHits, err := uc.store.QueryDense(ctx, collection, dense, uc.recallK)
	if err != nil {
		return "", fmt.Errorf("dense memory query: %w", err)
	}
	sparseHits, err := uc.store.QuerySparse(ctx, collection, sparse, uc.recallK)
	if err != nil {
		return "", fmt.Errorf("sparse memory query: %w", err)
	}

	fused := Fuse(denseHits, sparseHits, topK)
	return BuildContext(fused.Documents, payloadUserMessage, payloadBotResponse), nil
}

// DeleteByConversation drops every memory record produced by one
// conversation, used when the conversation itself is deleted.
func (uc *MemoryUseCase) DeleteByConversation(ctx context.Context, key, conversationID string) error {
	collection := uc.collection(key)
	if err := uc.store.EnsureCollection(ctx, collection); err != nil {
		return fmt.Errorf("ensure memory collection: %w", err)
	}
	if err := uc.store.DeleteByField(ctx, collection, payloadConversationID, conversationID); err != nil {
		return fmt.Errorf("delete conversation memory: %w", err)
	}
	return nil
}

func recordFromDocument(key string, doc domain.CandidateDocument) domain.MemoryRecord {
	return domain.MemoryRecord{
		ID:                doc.ID,
		MemoryKey:         key,
		ConversationID:    payloadString(doc.Payload[payloadConversationID]),
		UserMessage:       payloadString(doc.Payload[payloadUserMessage]),
		AssistantResponse: payloadString(doc.Payload[payloadBotResponse]),
		CreatedAt:         recordTimestamp(doc),
	}
}

func recordTimestamp(doc domain.CandidateDocument) time.Time {
	raw, ok := doc.Payload[payloadTimestamp].(string)
	if !ok {
		return time.Time{}
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return at
}
