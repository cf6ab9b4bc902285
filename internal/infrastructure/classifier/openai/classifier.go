package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/infrastructure/resilience"
)

// Classifier labels chat input through an OpenAI-compatible chat API with a
// vision-capable model. Answers outside the candidate set normalize to the
// generic label, so a chatty model cannot route a request into a collection
// that does not exist.
type Classifier struct {
	client   *openai.Client
	model    string
	executor *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Classifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Classifier{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

func (c *Classifier) ClassifyText(ctx context.Context, text string, candidates []string) (string, error) {
	answer, err := c.complete(ctx, "classifier.text", []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: labelInstruction(candidates),
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: text,
		},
	})
	if err != nil {
		return "", err
	}
	return normalizeLabel(answer, candidates), nil
}

func (c *Classifier) ClassifyImage(ctx context.Context, attachment domain.Attachment, candidates []string) (string, error) {
	answer, err := c.complete(ctx, "classifier.image", []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: labelInstruction(candidates),
		},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: "Classify this image.",
				},
				imagePart(attachment),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return normalizeLabel(answer, candidates), nil
}

func (c *Classifier) ClassifyDisease(ctx context.Context, attachment domain.Attachment) (string, error) {
	answer, err := c.complete(ctx, "classifier.disease", []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleSystem,
			Content: "You are a dermatology assistant. Name the most likely skin condition " +
				"shown in the image in one short phrase. If no skin condition is visible, answer: none.",
		},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: "What skin condition does this image show?",
				},
				imagePart(attachment),
			},
		},
	})
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "none") {
		return "", nil
	}
	return answer, nil
}

func (c *Classifier) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessage) (string, error) {
	var answer string
	call := func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: 0,
		})
		if err != nil {
			return fmt.Errorf("%s request: %w", operation, err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%s: empty completion", operation)
		}
		answer = resp.Choices[0].Message.Content
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return answer, nil
}

func imagePart(attachment domain.Attachment) openai.ChatMessagePart {
	mime := attachment.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(attachment.Data)),
		},
	}
}

func labelInstruction(candidates []string) string {
	labels := append([]string(nil), candidates...)
	if !containsLabel(labels, domain.LabelGeneric) {
		labels = append(labels, domain.LabelGeneric)
	}
	return fmt.Sprintf(
		"You are a medical triage classifier. Answer with exactly one of these labels and nothing else: %s. "+
			"Answer %q when none of the specialized labels apply.",
		strings.Join(labels, ", "), domain.LabelGeneric,
	)
}

// normalizeLabel maps the model answer onto the candidate set; anything it
// cannot match becomes generic.
func normalizeLabel(answer string, candidates []string) string {
	cleaned := strings.ToLower(strings.TrimSpace(answer))
	cleaned = strings.Trim(cleaned, `."'`)
	if cleaned == "" {
		return domain.LabelGeneric
	}

	for _, candidate := range candidates {
		if cleaned == strings.ToLower(strings.TrimSpace(candidate)) {
			return strings.ToLower(strings.TrimSpace(candidate))
		}
	}
	for _, candidate := range candidates {
		normalized := strings.ToLower(strings.TrimSpace(candidate))
		if normalized != "" && strings.Contains(cleaned, normalized) {
			return normalized
		}
	}
	return domain.LabelGeneric
}

func containsLabel(labels []string, label string) bool {
	for _, candidate := range labels {
		if strings.EqualFold(strings.TrimSpace(candidate), label) {
			return true
		}
	}
	return false
}
