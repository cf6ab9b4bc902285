package domain

import "time"

// Attachment is an immutable normalized image attachment, produced by a
// conversion step before classification or generation ever see the input.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type ChatRequest struct {
	UserID         string      `json:"user_id"`
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content"`
	Attachment     *Attachment `json:"attachment,omitempty"`
}

type TitleRequest struct {
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationTurn is one append-only message row owned by a conversation.
type ConversationTurn struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	HasAttachment  bool      `json:"has_attachment"`
	CreatedAt      time.Time `json:"created_at"`
}

// CompletedExchange is the terminal-event payload handed to the persistence
// queue once a generation stream finishes. Partial exchanges are never built.
type CompletedExchange struct {
	ExchangeID        string    `json:"exchange_id"`
	UserID            string    `json:"user_id"`
	ConversationID    string    `json:"conversation_id"`
	MemoryKey         string    `json:"memory_key"`
	UserMessage       string    `json:"user_message"`
	HasAttachment     bool      `json:"has_attachment"`
	AssistantResponse string    `json:"assistant_response"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
}
