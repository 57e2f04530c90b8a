package models

// Chat roles accepted in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string        `json:"message" validate:"required"`
	History []ChatMessage `json:"history,omitempty" validate:"omitempty,dive"`
}

// ChatResponse is the upstream's answer. Handled is false when the upstream
// could not answer with enough confidence.
type ChatResponse struct {
	Reply   string `json:"reply"`
	Handled bool   `json:"handled"`
}
