package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionRequired = errors.New("session id is required")
)

// Service owns conversation state. Every session it hands out starts with the
// same system prompt, built once when the service is constructed.
type Service struct {
	store        Store
	systemPrompt string
}

// NewService wires a store to the persona's system prompt.
func NewService(store Store, systemPrompt string) *Service {
	return &Service{store: store, systemPrompt: systemPrompt}
}

// SystemPrompt returns the prompt seeded into new sessions.
func (s *Service) SystemPrompt() string {
	return s.systemPrompt
}

// CreateSession provisions an anonymous session seeded with the system prompt.
func (s *Service) CreateSession(ctx context.Context) (*chat.Session, error) {
	session := chat.NewSession(uuid.NewString(), s.systemPrompt)
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// EnsureSession returns the session for id, creating a fresh one when id is
// empty or unknown. The boolean reports whether a new session was created.
func (s *Service) EnsureSession(ctx context.Context, id string) (*chat.Session, bool, error) {
	id = strings.TrimSpace(id)
	if id != "" {
		session, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			if session.Initialize(s.systemPrompt) {
				if err := s.store.Save(ctx, session); err != nil {
					return nil, false, fmt.Errorf("initialize session: %w", err)
				}
			}
			return session, false, nil
		case !errors.Is(err, ErrSessionNotFound):
			return nil, false, err
		}
	}

	session, err := s.CreateSession(ctx)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*chat.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	return s.store.Get(ctx, sessionID)
}

// Append adds messages to the end of the session history and returns the
// updated session.
func (s *Service) Append(ctx context.Context, sessionID string, messages ...chat.Message) (*chat.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, msg := range messages {
		if err := session.Append(msg); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return session, nil
}

// LoadTranscript returns the displayable messages, excluding the system prompt.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Visible(), nil
}

// History returns the full message sequence sent to the model.
func (s *Service) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.History(), nil
}

// DeleteSession ends a session and drops its history.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	return s.store.Delete(ctx, sessionID)
}

// Close releases the backing store.
func (s *Service) Close() error {
	return s.store.Close()
}
