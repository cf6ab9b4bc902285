package usecase

import (
	"reflect"
	"testing"

	"github.com/medassist/chat-backend/internal/core/domain"
)

func TestFuseDisjointListsKeepsUnion(t *testing.T) {
	dense := domain.RankedList{
		{ID: "a", Score: 0.9, Payload: map[string]any{"text": "alpha"}},
		{ID: "b", Score: 0.5, Payload: map[string]any{"text": "bravo"}},
	}
	sparse := domain.RankedList{
		{ID: "c", Score: 0.8, Payload: map[string]any{"text": "charlie"}},
	}

	fused := Fuse(dense, sparse, 10)
	if len(fused.Documents) != 3 {
		t.Fatalf("expected 3 fused documents, got %d", len(fused.Documents))
	}
}

func TestFuseTruncatesToTopN(t *testing.T) {
	dense := domain.RankedList{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.5},
	}
	sparse := domain.RankedList{
		{ID: "c", Score: 0.8},
		{ID: "d", Score: 0.3},
	}

	fused := Fuse(dense, sparse, 2)
	if len(fused.Documents) != 2 {
		t.Fatalf("expected 2 fused documents, got %d", len(fused.Documents))
	}
}

func TestFuseCrossMethodAgreementWins(t *testing.T) {
	dense := domain.RankedList{
		{ID: "a", Score: 0.9, Payload: map[string]any{"text": "alpha"}},
		{ID: "b", Score: 0.5, Payload: map[string]any{"text": "bravo"}},
	}
	sparse := domain.RankedList{
		{ID: "b", Score: 0.8, Payload: map[string]any{"text": "bravo"}},
		{ID: "c", Score: 0.3, Payload: map[string]any{"text": "charlie"}},
	}

	fused := Fuse(dense, sparse, 2)
	if len(fused.Documents) != 2 {
		t.Fatalf("expected 2 fused documents, got %d", len(fused.Documents))
	}
	if fused.Documents[0].ID != "b" {
		t.Fatalf("expected document present in both lists first, got %s", fused.Documents[0].ID)
	}
	if fused.Documents[1].ID != "a" {
		t.Fatalf("expected top dense document second, got %s", fused.Documents[1].ID)
	}
	if fused.Context != "bravo\nalpha" {
		t.Fatalf("unexpected context: %q", fused.Context)
	}
}

func TestFuseAgainstItselfPreservesOrder(t *testing.T) {
	list := domain.RankedList{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.6},
		{ID: "c", Score: 0.2},
	}

	fused := Fuse(list, list, len(list))
	for i, doc := range fused.Documents {
		if doc.ID != list[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, list[i].ID, doc.ID)
		}
	}
}

func TestFuseDeterministic(t *testing.T) {
	dense := domain.RankedList{
		{ID: "a", Score: 0.7},
		{ID: "b", Score: 0.7},
		{ID: "c", Score: 0.1},
	}
	sparse := domain.RankedList{
		{ID: "d", Score: 0.4},
		{ID: "b", Score: 0.4},
	}

	first := Fuse(dense, sparse, 10)
	for i := 0; i < 20; i++ {
		again := Fuse(dense, sparse, 10)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("fusion not deterministic: run %d differs", i)
		}
	}
}

func TestFuseCollapsesDuplicateIDsWithinOneList(t *testing.T) {
	dense := domain.RankedList{
		{ID: "a", Score: 0.9, Payload: map[string]any{"text": "first"}},
		{ID: "a", Score: 0.2, Payload: map[string]any{"text": "second"}},
	}

	fused := Fuse(dense, nil, 10)
	if len(fused.Documents) != 1 {
		t.Fatalf("expected duplicate ids collapsed, got %d documents", len(fused.Documents))
	}
	if fused.Context != "first" {
		t.Fatalf("expected first occurrence to win, got context %q", fused.Context)
	}
}

func TestFuseEmptyInputs(t *testing.T) {
	fused := Fuse(nil, nil, 5)
	if len(fused.Documents) != 0 {
		t.Fatalf("expected no documents, got %d", len(fused.Documents))
	}
	if fused.Context != "" {
		t.Fatalf("expected empty context, got %q", fused.Context)
	}
}

func TestBuildContextSkipsMissingAndEmptyFields(t *testing.T) {
	docs := []domain.CandidateDocument{
		{ID: "1", Payload: map[string]any{"user_message": "rash on arm", "bot_response": "apply moisturizer"}},
		{ID: "2", Payload: map[string]any{"user_message": "  ", "bot_response": "see a specialist"}},
		{ID: "3", Payload: map[string]any{"unrelated": "x"}},
	}

	got := BuildContext(docs, "user_message", "bot_response")
	want := "rash on arm\napply moisturizer\nsee a specialist"
	if got != want {
		t.Fatalf("unexpected context:\n got %q\nwant %q", got, want)
	}
}
