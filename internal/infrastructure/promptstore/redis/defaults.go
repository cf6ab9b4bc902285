package redis

import "github.com/medassist/chat-backend/internal/core/domain"

var defaultProfiles = map[string]domain.PromptProfile{
	domain.RoleClassifier: {
		Instruction: "Classify the user input into exactly one of the candidate labels.",
		Fields:      []string{"dermatology", domain.LabelGeneric},
	},
	domain.RoleDirectResponder: {
		Instruction: "You are a friendly medical chat assistant. Answer the user directly and concisely. " +
			"Remind the user to consult a doctor for diagnosis or treatment decisions.",
		MaxTokens:   1024,
		Temperature: 0.7,
	},
	domain.RoleRAGResponder: {
		Instruction: "You are a dermatology assistant. Answer using the reference material below; " +
			"when it does not cover the question, say so. Do not invent findings. " +
			"Remind the user to consult a dermatologist for diagnosis or treatment decisions.",
		MaxTokens:   1536,
		Temperature: 0.3,
	},
	domain.RoleSummarizer: {
		Instruction: "Produce a short title, at most five words, for a conversation that starts with the message below. " +
			"Answer with the title only.",
		MaxTokens:   32,
		Temperature: 0.2,
	},
}
