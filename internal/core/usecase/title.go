package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/core/ports"
)

const fallbackTitle = "New conversation"

// TitleUseCase produces a short conversation title from the first user
// message. Image-only messages are first described by the fine-grained
// classifier so the summarizer has text to work with.
type TitleUseCase struct {
	generator  ports.Generator
	classifier ports.Classifier
	prompts    ports.PromptStore
	logger     *slog.Logger
}

func NewTitleUseCase(generator ports.Generator, classifier ports.Classifier, prompts ports.PromptStore, logger *slog.Logger) *TitleUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleUseCase{
		generator:  generator,
		classifier: classifier,
		prompts:    prompts,
		logger:     logger,
	}
}

func (uc *TitleUseCase) GenerateTitle(ctx context.Context, req domain.TitleRequest) (string, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && req.Attachment == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "generate title",
			fmt.Errorf("message must carry text content or an attachment"))
	}

	if content == "" {
		detail, err := uc.classifier.ClassifyDisease(ctx, *req.Attachment)
		if err != nil {
			uc.logger.Warn("title_attachment_description_failed", "error", err)
			return fallbackTitle, nil
		}
		content = detail
	}

	profile, err := uc.prompts.Profile(ctx, domain.RoleSummarizer)
	if err != nil {
		uc.logger.Warn("prompt_profile_fallback", "role", domain.RoleSummarizer, "error", err)
		profile = domain.PromptProfile{}
	}

	prompt := content
	if profile.Instruction != "" {
		prompt = profile.Instruction + "\n\nMessage:\n" + content
	}

	title, err := uc.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", domain.WrapError(domain.ErrGeneration, "generate title", err)
	}

	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		title = fallbackTitle
	}
	return title, nil
}
