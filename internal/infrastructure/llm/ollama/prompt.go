package ollama

import (
	"strings"

	"github.com/medassist/chat-backend/internal/core/domain"
)

// buildGenerationPrompt assembles the final prompt from the profile
// instruction and whatever pipeline products are present. Sections are
// omitted when empty so the direct path produces a plain instruction plus
// question.
func buildGenerationPrompt(req domain.GenerationRequest) string {
	var b strings.Builder

	if instruction := strings.TrimSpace(req.Profile.Instruction); instruction != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}
	if context := strings.TrimSpace(req.Context); context != "" {
		b.WriteString("Reference material:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}
	if detail := strings.TrimSpace(req.DiseaseDetail); detail != "" {
		b.WriteString("Image assessment:\n")
		b.WriteString(detail)
		b.WriteString("\n\n")
	}
	if recent := strings.TrimSpace(req.RecentConversation); recent != "" {
		b.WriteString("Previous conversations with this user:\n")
		b.WriteString(recent)
		b.WriteString("\n\n")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" && req.Attachment != nil {
		prompt = "Describe the attached image and answer accordingly."
	}
	b.WriteString("User message:\n")
	b.WriteString(prompt)
	return b.String()
}
