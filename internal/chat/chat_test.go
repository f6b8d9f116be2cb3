package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/smileynet/tripdeck/internal/api"
)

type recordingSender struct {
	got   []api.ChatRequest
	reply string
	err   error
}

func (r *recordingSender) Chat(_ context.Context, req api.ChatRequest) (api.ChatReply, error) {
	r.got = append(r.got, req)
	if r.err != nil {
		return api.ChatReply{}, r.err
	}
	return api.ChatReply{Message: api.ChatMessage{Role: RoleAssistant, Content: r.reply}}, nil
}

func TestConversation_SendPostsHistory(t *testing.T) {
	s := &recordingSender{reply: "Try the hill country."}
	c := NewConversation(s)

	if _, err := c.Send(context.Background(), "Where should I go?"); err != nil {
		t.Fatal(err)
	}
	msg, err := c.Send(context.Background(), "  And in May? ")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Role != RoleAssistant || msg.Text != "Try the hill country." {
		t.Errorf("reply = %+v", msg)
	}

	// The second request carries the full history: user, assistant, user.
	last := s.got[len(s.got)-1]
	if len(last.Messages) != 3 {
		t.Fatalf("history length = %d, want 3", len(last.Messages))
	}
	if last.Messages[2].Content != "And in May?" {
		t.Errorf("last message = %q, want trimmed text", last.Messages[2].Content)
	}

	snap := c.Snapshot()
	if len(snap.Messages) != 4 || snap.Loading || snap.Err != nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestConversation_SendError(t *testing.T) {
	c := NewConversation(&recordingSender{err: errors.New("rate limited")})

	if _, err := c.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	snap := c.Snapshot()
	if len(snap.Messages) != 1 || snap.Messages[0].Role != RoleUser {
		t.Errorf("user message should remain after failure: %+v", snap.Messages)
	}
	if snap.Err == nil || snap.Loading {
		t.Errorf("snapshot = %+v, want error and not loading", snap)
	}
}

func TestConversation_EmptyMessage(t *testing.T) {
	s := &recordingSender{}
	c := NewConversation(s)
	if _, err := c.Send(context.Background(), "   "); err == nil {
		t.Error("expected error for blank message")
	}
	if len(s.got) != 0 {
		t.Error("blank message must not be sent")
	}
}

func TestConversation_Clear(t *testing.T) {
	c := NewConversation(&recordingSender{reply: "ok"})
	_, _ = c.Send(context.Background(), "hi")
	c.Clear()
	if n := len(c.Snapshot().Messages); n != 0 {
		t.Errorf("messages after Clear = %d", n)
	}
}
