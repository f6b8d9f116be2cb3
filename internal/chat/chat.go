// Package chat holds the travel assistant conversation.
package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smileynet/tripdeck/internal/api"
)

// Roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sender posts a conversation and returns the reply, usually via api.Client.
type Sender interface {
	Chat(ctx context.Context, req api.ChatRequest) (api.ChatReply, error)
}

// Message is one turn in the conversation.
type Message struct {
	ID     string
	Role   string
	Text   string
	SentAt time.Time
}

// Snapshot is a consistent copy of the conversation state.
type Snapshot struct {
	Messages []Message
	Loading  bool
	Err      error
}

// Conversation is a single chat thread.
type Conversation struct {
	sender Sender
	now    func() time.Time

	mu       sync.Mutex
	messages []Message
	loading  bool
	err      error
}

// NewConversation creates an empty conversation.
func NewConversation(sender Sender) *Conversation {
	return &Conversation{sender: sender, now: time.Now}
}

// Send appends the user's message, posts the whole history, and appends the
// reply. On failure the user's message stays in the thread and the error is
// kept for display.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, fmt.Errorf("chat: message is empty")
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return Message{}, fmt.Errorf("chat: a reply is already pending")
	}
	c.messages = append(c.messages, Message{ID: uuid.NewString(), Role: RoleUser, Text: text, SentAt: c.now()})
	c.loading = true
	c.err = nil
	req := api.ChatRequest{Messages: make([]api.ChatMessage, len(c.messages))}
	for i, m := range c.messages {
		req.Messages[i] = api.ChatMessage{Role: m.Role, Content: m.Text}
	}
	c.mu.Unlock()

	reply, err := c.sender.Chat(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.err = err
		return Message{}, fmt.Errorf("chat: %w", err)
	}
	msg := Message{ID: uuid.NewString(), Role: RoleAssistant, Text: reply.Message.Content, SentAt: c.now()}
	c.messages = append(c.messages, msg)
	return msg, nil
}

// Snapshot returns the current messages, loading flag, and last error.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Messages: slices.Clone(c.messages), Loading: c.loading, Err: c.err}
}

// Clear starts a fresh conversation.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.err = nil
}
