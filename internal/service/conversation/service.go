// Package conversation runs one chat turn at a time per session: record the
// user message, answer it locally or through the model, record the reply.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
	"github.com/zhouzirui/persona-chat/internal/service/ai"
	chatservice "github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/intercept"
)

// Fallback replaces the assistant turn whenever the completion call fails.
const Fallback = "I apologize, I cannot respond at the moment."

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrBusy       = errors.New("a reply is already in progress for this session")
)

// Source records where an assistant reply came from.
type Source string

const (
	SourceIntercept Source = "intercept"
	SourceModel     Source = "model"
	SourceFallback  Source = "fallback"
)

// State is the per-session presentation state.
type State string

const (
	StateIdle       State = "idle"
	StateResponding State = "responding"
)

// Completer produces a reply for the full ordered conversation.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}

// Turn is the outcome of one submission.
type Turn struct {
	SessionID string       `json:"sessionId"`
	User      chat.Message `json:"user"`
	Reply     chat.Message `json:"reply"`
	Source    Source       `json:"source"`
	Notice    string       `json:"notice,omitempty"`
}

// Service coordinates sessions, the intercept matcher and the completer.
type Service struct {
	sessions  *chatservice.Service
	completer Completer

	mu         sync.Mutex
	responding map[string]struct{}
}

// NewService wires the turn loop.
func NewService(sessions *chatservice.Service, completer Completer) *Service {
	return &Service{
		sessions:   sessions,
		completer:  completer,
		responding: make(map[string]struct{}),
	}
}

// State reports whether a reply is in flight for sessionID.
func (s *Service) State(sessionID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responding[sessionID]; ok {
		return StateResponding
	}
	return StateIdle
}

// Submit runs one turn. Blank input returns ErrEmptyInput without touching
// the session. onUser, if set, is called once the user message is stored and
// before any reply is produced.
func (s *Service) Submit(ctx context.Context, sessionID, input string, onUser func(chat.Message)) (*Turn, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if !s.begin(sessionID) {
		return nil, ErrBusy
	}
	defer s.end(sessionID)

	userMsg := chat.NewMessage(chat.RoleUser, input)
	session, err := s.sessions.Append(ctx, sessionID, userMsg)
	if err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	if onUser != nil {
		onUser(userMsg)
	}

	turn := &Turn{SessionID: sessionID, User: userMsg}

	var reply string
	if canned, ok := intercept.Match(input); ok {
		reply = canned
		turn.Source = SourceIntercept
	} else {
		reply, err = s.completer.Complete(ctx, session.History())
		if err != nil {
			log.Printf("[conversation] completion failed for session=%s: %v", sessionID, err)
			reply = Fallback
			turn.Source = SourceFallback
			turn.Notice = noticeFor(err)
		} else {
			turn.Source = SourceModel
		}
	}

	turn.Reply = chat.NewMessage(chat.RoleAssistant, reply)
	// The reply is recorded even if the client went away mid-call.
	if _, err := s.sessions.Append(context.WithoutCancel(ctx), sessionID, turn.Reply); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	return turn, nil
}

func (s *Service) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.responding[sessionID]; busy {
		return false
	}
	s.responding[sessionID] = struct{}{}
	return true
}

func (s *Service) end(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.responding, sessionID)
}

func noticeFor(err error) string {
	var completionErr *ai.CompletionError
	if errors.As(err, &completionErr) {
		return "An error occurred: " + completionErr.Notice()
	}
	return "An error occurred while generating a reply."
}
