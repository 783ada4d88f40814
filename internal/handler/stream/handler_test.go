package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
	"github.com/zhouzirui/persona-chat/internal/model/persona"
	chatservice "github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/conversation"
	"github.com/zhouzirui/persona-chat/internal/service/intercept"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(_ context.Context, _ []chat.Message) (string, error) {
	return s.reply, s.err
}

type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingCompleter) Complete(_ context.Context, _ []chat.Message) (string, error) {
	b.started <- struct{}{}
	<-b.release
	return "Patience.", nil
}

func newHandler(t *testing.T, completer conversation.Completer) (*Handler, string) {
	t.Helper()
	chatSvc := chatservice.NewService(chatservice.NewMemoryStore(), persona.Default().SystemPrompt())
	session, err := chatSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	return New(chatSvc, conversation.NewService(chatSvc, completer)), session.ID
}

func TestStreamEventsInOrder(t *testing.T) {
	handler, id := newHandler(t, stubCompleter{reply: "Namaste, friend."})
	rec := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), rec, id, "Hello"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	body := rec.Body.String()
	userIdx := strings.Index(body, "event: user")
	msgIdx := strings.Index(body, "event: message")
	endIdx := strings.Index(body, "event: end")
	if userIdx < 0 || msgIdx < userIdx || endIdx < msgIdx {
		t.Fatalf("unexpected event order:\n%s", body)
	}
	if strings.Contains(body, "event: notice") {
		t.Fatalf("no notice expected on success:\n%s", body)
	}
	if !strings.Contains(body, "Namaste, friend.") {
		t.Fatalf("reply missing from stream:\n%s", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestStreamInterceptedQuestion(t *testing.T) {
	handler, id := newHandler(t, stubCompleter{reply: "unused"})
	rec := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), rec, id, "Who built this chatbot?"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, intercept.Attribution) || !strings.Contains(body, `"source":"intercept"`) {
		t.Fatalf("expected intercepted reply:\n%s", body)
	}
}

func TestStreamNoticeOnFailure(t *testing.T) {
	handler, id := newHandler(t, stubCompleter{err: context.DeadlineExceeded})
	rec := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), rec, id, "Hello"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: notice") {
		t.Fatalf("expected notice event:\n%s", body)
	}
	if !strings.Contains(body, conversation.Fallback) {
		t.Fatalf("expected fallback reply:\n%s", body)
	}
}

func TestStreamUnknownSession(t *testing.T) {
	handler, _ := newHandler(t, stubCompleter{})
	rec := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), rec, "missing", "Hello"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStreamWhileResponding(t *testing.T) {
	completer := blockingCompleter{started: make(chan struct{}), release: make(chan struct{})}
	handler, id := newHandler(t, completer)

	done := make(chan error)
	go func() {
		done <- handler.HandleStreamRequest(context.Background(), httptest.NewRecorder(), id, "Hello")
	}()
	<-completer.started

	rec := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rec, id, "Are you there?"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), conversation.ErrBusy.Error()) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("busy response must not open a stream, got %q", rec.Header().Get("Content-Type"))
	}

	close(completer.release)
	if err := <-done; err != nil {
		t.Fatalf("first stream err: %v", err)
	}
}
