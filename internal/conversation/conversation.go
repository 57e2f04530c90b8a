// Package conversation holds the client side of a chat: an ordered list of
// messages that always starts with the system prompt. It is never persisted.
package conversation

import (
	"context"
	"errors"
	"strings"

	"resume-relay/internal/models"
)

// DefaultSystemPrompt seeds conversations created without an explicit prompt.
const DefaultSystemPrompt = "You are a helpful assistant answering questions about the candidate's resume."

var (
	ErrEmptyInput     = errors.New("message must not be empty")
	ErrNothingToRetry = errors.New("no failed message to retry")
)

// Sender delivers one chat turn.
type Sender interface {
	Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
}

type Conversation struct {
	messages []models.ChatMessage
	pending  string
}

func New(systemPrompt string) *Conversation {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Conversation{
		messages: []models.ChatMessage{{Role: models.RoleSystem, Content: systemPrompt}},
	}
}

// Send relays input with the history so far. On success the user turn and
// the reply are appended; on failure nothing changes and input is kept for
// Retry.
func (c *Conversation) Send(ctx context.Context, sender Sender, input string) (models.ChatResponse, error) {
	if strings.TrimSpace(input) == "" {
		return models.ChatResponse{}, ErrEmptyInput
	}

	resp, err := sender.Chat(ctx, models.ChatRequest{Message: input, History: c.History()})
	if err != nil {
		c.pending = input
		return models.ChatResponse{}, err
	}

	c.pending = ""
	c.messages = append(c.messages,
		models.ChatMessage{Role: models.RoleUser, Content: input},
	)
	// An empty reply cannot be stored as a message.
	if resp.Reply != "" {
		c.messages = append(c.messages, models.ChatMessage{Role: models.RoleAssistant, Content: resp.Reply})
	}
	return resp, nil
}

// Retry resends the last failed input.
func (c *Conversation) Retry(ctx context.Context, sender Sender) (models.ChatResponse, error) {
	if c.pending == "" {
		return models.ChatResponse{}, ErrNothingToRetry
	}
	return c.Send(ctx, sender, c.pending)
}

// Pending returns the input awaiting a retry, if any.
func (c *Conversation) Pending() string { return c.pending }

// Reset drops every turn but keeps the system message.
func (c *Conversation) Reset() {
	c.messages = c.messages[:1:1]
	c.pending = ""
}

// History returns the turns sent upstream, without the system message.
func (c *Conversation) History() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.messages)-1)
	copy(out, c.messages[1:])
	return out
}

// Messages returns every message including the system prompt.
func (c *Conversation) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}
