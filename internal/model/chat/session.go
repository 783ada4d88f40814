package chat

import (
	"errors"
	"time"
)

var (
	ErrSystemMessage = errors.New("system message can only be seeded once")
	ErrUninitialized = errors.New("session has no system message")
)

// Session captures one anonymous conversation. Messages[0] is always the
// system prompt once the session is initialized.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`
	Messages  []Message `json:"messages"`
}

// NewSession returns an initialized session seeded with systemPrompt.
func NewSession(id, systemPrompt string) *Session {
	now := time.Now().UTC()
	s := &Session{ID: id, CreatedAt: now, UpdatedAt: now}
	s.Initialize(systemPrompt)
	return s
}

// Initialize seeds the system message if the session is empty. It reports
// whether a message was added; repeated calls are no-ops.
func (s *Session) Initialize(systemPrompt string) bool {
	if len(s.Messages) > 0 {
		return false
	}
	s.Messages = append(s.Messages, NewMessage(RoleSystem, systemPrompt))
	return true
}

// Append adds a user or assistant message to the end of the conversation.
func (s *Session) Append(msg Message) error {
	if len(s.Messages) == 0 {
		return ErrUninitialized
	}
	if msg.Role == RoleSystem {
		return ErrSystemMessage
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.Messages = append(s.Messages, msg)
	return nil
}

// Visible returns the displayable history, i.e. everything after the system
// message.
func (s *Session) Visible() []Message {
	if len(s.Messages) <= 1 {
		return []Message{}
	}
	out := make([]Message, len(s.Messages)-1)
	copy(out, s.Messages[1:])
	return out
}

// History returns a copy of the full ordered message list.
func (s *Session) History() []Message {
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Clone returns a deep copy so stores never share message slices with callers.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = s.History()
	return &c
}
