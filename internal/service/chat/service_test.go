package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/persona-chat/internal/model/chat"
	chat "github.com/zhouzirui/persona-chat/internal/service/chat"
)

const testPrompt = "You are a test persona."

func newService() *chat.Service {
	return chat.NewService(chat.NewMemoryStore(), testPrompt)
}

func TestServiceGetSession(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.Messages[0].Content != testPrompt {
		t.Fatalf("unexpected system prompt: got %s", got.Messages[0].Content)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestServiceEnsureSessionReusesExisting(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, created, err := svc.EnsureSession(ctx, "")
	require.NoError(t, err)
	assert.True(t, created)

	for i := 0; i < 3; i++ {
		again, created, err := svc.EnsureSession(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Len(t, again.Messages, 1)
	}
}

func TestServiceEnsureSessionUnknownIDCreatesNew(t *testing.T) {
	svc := newService()

	session, created, err := svc.EnsureSession(context.Background(), "stale-cookie")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "stale-cookie", session.ID)
}

func TestServiceAppendAndTranscript(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.Append(ctx, session.ID,
		model.NewMessage(model.RoleUser, "Hello"),
		model.NewMessage(model.RoleAssistant, "Namaste"),
	)
	require.NoError(t, err)

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, model.RoleUser, transcript[0].Role)
	assert.Equal(t, "Namaste", transcript[1].Content)

	history, err := svc.History(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, model.RoleSystem, history[0].Role)
}

func TestServiceAppendUnknownSession(t *testing.T) {
	svc := newService()
	_, err := svc.Append(context.Background(), "missing", model.NewMessage(model.RoleUser, "hi"))
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestServiceDeleteSession(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSession(ctx, session.ID))

	_, err = svc.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}
