package domain

import "time"

// Prompt profile roles resolved through the prompt store.
const (
	RoleDirectResponder = "llm_responder"
	RoleRAGResponder    = "rag_responder"
	RoleClassifier      = "classifier"
	RoleSummarizer      = "summarizer"
)

// PromptProfile is the plain configuration value consumed by the fixed
// prompt-building functions: an instruction string plus auxiliary fields
// (candidate labels for the classifier profile).
type PromptProfile struct {
	Instruction string   `json:"instruction"`
	Fields      []string `json:"fields,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
}

// GenerationRequest carries everything the generation client needs to build
// the final prompt: the user prompt, the fused retrieval context, the recent
// conversation string and an optional normalized image.
type GenerationRequest struct {
	Prompt             string
	Context            string
	DiseaseDetail      string
	RecentConversation string
	Attachment         *Attachment
	Profile            PromptProfile
}

// GenerationEvent is one element of a generation stream: a text delta, the
// terminal event carrying the assembled answer, or an error. Every stream
// ends with exactly one Done or Err event.
type GenerationEvent struct {
	Delta string
	Done  bool
	Text  string
	Err   error
}

// PipelineLimits bounds the external calls issued by the chat pipeline.
type PipelineLimits struct {
	ClassifyTimeout   time.Duration
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
	HybridCandidates  int
	ContextTopN       int
	MemoryTopK        int
}
