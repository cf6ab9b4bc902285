package domain

import "time"

// MemoryRecord is one persisted user/assistant exchange inside a per-key
// bounded memory collection.
type MemoryRecord struct {
	ID                string    `json:"id"`
	MemoryKey         string    `json:"memory_key"`
	ConversationID    string    `json:"conversation_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	CreatedAt         time.Time `json:"created_at"`
}
