package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/medassist/chat-backend/internal/core/domain"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDense(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (fakeEmbedder) EmbedSparse(context.Context, string) (domain.SparseVector, error) {
	return domain.SparseVector{Indices: []uint32{1}, Values: []float32{1}}, nil
}

type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string]map[string]domain.VectorPoint
	denseHits   map[string]domain.RankedList
	sparseHits  map[string]domain.RankedList
	queryCalls  int
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: make(map[string]map[string]domain.VectorPoint)}
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[collection]; !ok {
		f.collections[collection] = make(map[string]domain.VectorPoint)
	}
	return nil
}

func (f *fakeVectorStore) QueryDense(_ context.Context, collection string, _ []float32, _ int) (domain.RankedList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	return append(domain.RankedList(nil), f.denseHits[collection]...), nil
}

func (f *fakeVectorStore) QuerySparse(_ context.Context, collection string, _ domain.SparseVector, _ int) (domain.RankedList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	return append(domain.RankedList(nil), f.sparseHits[collection]...), nil
}

func (f *fakeVectorStore) Scroll(_ context.Context, collection string, limit int) ([]domain.CandidateDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]domain.CandidateDocument, 0, len(f.collections[collection]))
	for id, point := range f.collections[collection] {
		if len(docs) >= limit {
			break
		}
		docs = append(docs, domain.CandidateDocument{ID: id, Payload: point.Payload})
	}
	return docs, nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, collection string, points []domain.VectorPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, point := range points {
		f.collections[collection][point.ID] = point
	}
	return nil
}

func (f *fakeVectorStore) Count(_ context.Context, collection string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collections[collection]), nil
}

func (f *fakeVectorStore) Delete(_ context.Context, collection string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.collections[collection], id)
	}
	return nil
}

func (f *fakeVectorStore) DeleteByField(_ context.Context, collection, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, point := range f.collections[collection] {
		if payloadString(point.Payload[field]) == value {
			delete(f.collections[collection], id)
		}
	}
	return nil
}

func memoryRecordAt(i int, base time.Time) domain.MemoryRecord {
	return domain.MemoryRecord{
		ID:                fmt.Sprintf("record-%03d", i),
		ConversationID:    "conv-1",
		UserMessage:       fmt.Sprintf("question %d", i),
		AssistantResponse: fmt.Sprintf("answer %d", i),
		CreatedAt:         base.Add(time.Duration(i) * time.Second),
	}
}

func TestMemoryAppendBelowCapKeepsAllRecords(t *testing.T) {
	store := newFakeVectorStore()
	uc := NewMemoryUseCase(fakeEmbedder{}, store, "memory_", 20, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		if err := uc.Append(context.Background(), "user-1", memoryRecordAt(i, base)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	count, err := store.Count(context.Background(), "memory_user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected 10 records, got %d", count)
	}
}

func TestMemoryAppendAtCapEvictsOldest(t *testing.T) {
	store := newFakeVectorStore()
	uc := NewMemoryUseCase(fakeEmbedder{}, store, "memory_", 20, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < memoryMaxRecords+1; i++ {
		if err := uc.Append(context.Background(), "user-1", memoryRecordAt(i, base)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := uc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != memoryMaxRecords {
		t.Fatalf("expected %d records after eviction, got %d", memoryMaxRecords, len(records))
	}
	for _, record := range records {
		if record.ID == "record-000" {
			t.Fatalf("expected oldest record evicted, still present: %s", record.ID)
		}
	}
	if records[0].ID != "record-001" {
		t.Fatalf("expected record-001 oldest after eviction, got %s", records[0].ID)
	}
}

func TestMemoryAppendConcurrentNeverExceedsCap(t *testing.T) {
	store := newFakeVectorStore()
	uc := NewMemoryUseCase(fakeEmbedder{}, store, "memory_", 20, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	const appends = memoryMaxRecords * 2
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := uc.Append(context.Background(), "user-1", memoryRecordAt(i, base)); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	count, err := store.Count(context.Background(), "memory_user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != memoryMaxRecords {
		t.Fatalf("expected exactly %d records, got %d", memoryMaxRecords, count)
	}
}

func TestMemoryRecallBuildsContextFromExchanges(t *testing.T) {
	store := newFakeVectorStore()
	store.denseHits = map[string]domain.RankedList{
		"memory_user-1": {
			{ID: "m1", Score: 0.9, Payload: map[string]any{
				payloadUserMessage: "itchy patch on elbow",
				payloadBotResponse: "sounds like eczema",
			}},
		},
	}
	store.sparseHits = map[string]domain.RankedList{
		"memory_user-1": {
			{ID: "m2", Score: 0.7, Payload: map[string]any{
				payloadUserMessage: "sunscreen advice",
				payloadBotResponse: "use SPF 50",
			}},
		},
	}
	uc := NewMemoryUseCase(fakeEmbedder{}, store, "memory_", 20, nil)

	got, err := uc.Recall(context.Background(), "user-1", "skin condition", 5)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	want := "itchy patch on elbow\nsounds like eczema\nsunscreen advice\nuse SPF 50"
	if got != want {
		t.Fatalf("unexpected recall context:\n got %q\nwant %q", got, want)
	}
}

func TestMemoryRecallEmptyQueryIsNoop(t *testing.T) {
	store := newFakeVectorStore()
	uc := NewMemoryUseCase(fakeEmbedder{}, store, "memory_", 20, nil)

	got, err := uc.Recall(context.Background(), "user-1", "", 5)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	if store.queryCalls != 0 {
		t.Fatalf("expected no vector queries, got %d", store.queryCalls)
	}
}

func TestMemoryDeleteByConversation(t *testing.T) {
	store := newFakeVectorStore()
	uc := NewMemoryUseCase(fakeEmbedder{}, store, "memory_", 20, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	keep := memoryRecordAt(0, base)
	keep.ConversationID = "conv-keep"
	drop := memoryRecordAt(1, base)
	drop.ConversationID = "conv-drop"
	for _, record := range []domain.MemoryRecord{keep, drop} {
		if err := uc.Append(context.Background(), "user-1", record); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := uc.DeleteByConversation(context.Background(), "user-1", "conv-drop"); err != nil {
		t.Fatalf("delete by conversation: %v", err)
	}

	records, err := uc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ConversationID != "conv-keep" {
		t.Fatalf("expected only conv-keep records, got %+v", records)
	}
}
