package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/medassist/chat-backend/internal/core/domain"
)

func titlePrompts() *fakePromptStore {
	return &fakePromptStore{profiles: map[string]domain.PromptProfile{
		domain.RoleSummarizer: {Instruction: "summarize in five words"},
	}}
}

func TestGenerateTitleFromText(t *testing.T) {
	generator := &fakeGenerator{text: `"Eczema flare-up advice"`}
	uc := NewTitleUseCase(generator, &fakeClassifier{}, titlePrompts(), nil)

	title, err := uc.GenerateTitle(context.Background(), domain.TitleRequest{Content: "my elbow is itchy"})
	if err != nil {
		t.Fatalf("generate title: %v", err)
	}
	if title != "Eczema flare-up advice" {
		t.Fatalf("expected quotes trimmed, got %q", title)
	}
}

func TestGenerateTitleImageOnlyUsesDiseaseDescription(t *testing.T) {
	generator := &fakeGenerator{text: "Psoriasis question"}
	classifier := &fakeClassifier{disease: "plaque psoriasis"}
	uc := NewTitleUseCase(generator, classifier, titlePrompts(), nil)

	title, err := uc.GenerateTitle(context.Background(), domain.TitleRequest{
		Attachment: &domain.Attachment{MimeType: "image/png", Data: []byte{0x89}},
	})
	if err != nil {
		t.Fatalf("generate title: %v", err)
	}
	if title != "Psoriasis question" {
		t.Fatalf("unexpected title %q", title)
	}
	if classifier.diseaseCalls != 1 {
		t.Fatalf("expected one description call, got %d", classifier.diseaseCalls)
	}
}

func TestGenerateTitleImageDescriptionFailureFallsBack(t *testing.T) {
	generator := &fakeGenerator{text: "unused"}
	classifier := &fakeClassifier{diseaseErr: errors.New("vision model down")}
	uc := NewTitleUseCase(generator, classifier, titlePrompts(), nil)

	title, err := uc.GenerateTitle(context.Background(), domain.TitleRequest{
		Attachment: &domain.Attachment{MimeType: "image/png", Data: []byte{0x89}},
	})
	if err != nil {
		t.Fatalf("generate title: %v", err)
	}
	if title != fallbackTitle {
		t.Fatalf("expected fallback title, got %q", title)
	}
}

func TestGenerateTitleRejectsEmptyRequest(t *testing.T) {
	uc := NewTitleUseCase(&fakeGenerator{}, &fakeClassifier{}, titlePrompts(), nil)

	_, err := uc.GenerateTitle(context.Background(), domain.TitleRequest{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestGenerateTitleGeneratorError(t *testing.T) {
	generator := &fakeGenerator{textErr: errors.New("timeout")}
	uc := NewTitleUseCase(generator, &fakeClassifier{}, titlePrompts(), nil)

	_, err := uc.GenerateTitle(context.Background(), domain.TitleRequest{Content: "hello"})
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestGenerateTitleBlankOutputFallsBack(t *testing.T) {
	generator := &fakeGenerator{text: `  ""  `}
	uc := NewTitleUseCase(generator, &fakeClassifier{}, titlePrompts(), nil)

	title, err := uc.GenerateTitle(context.Background(), domain.TitleRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("generate title: %v", err)
	}
	if title != fallbackTitle {
		t.Fatalf("expected fallback title for blank output, got %q", title)
	}
}
