package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/persona-chat/internal/config"
	"github.com/zhouzirui/persona-chat/internal/model/chat"
)

type recordingModel struct {
	input   []*schema.Message
	options *model.Options
	reply   *schema.Message
	err     error
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	m.options = model.GetCommonOptions(&model.Options{}, opts...)
	return m.reply, m.err
}

func (m *recordingModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *recordingModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func newTestClient(t *testing.T, chatModel model.BaseChatModel) *Client {
	t.Helper()
	client, err := NewClientWithModel(context.Background(), chatModel, "fake")
	require.NoError(t, err)
	return client
}

func conversation() []chat.Message {
	return []chat.Message{
		chat.NewMessage(chat.RoleSystem, "You are Gandhi."),
		chat.NewMessage(chat.RoleUser, "Hello"),
		chat.NewMessage(chat.RoleAssistant, "Namaste"),
		chat.NewMessage(chat.RoleUser, "What is truth?"),
	}
}

func TestCompleteSendsHistoryWithFixedParameters(t *testing.T) {
	fake := &recordingModel{reply: schema.AssistantMessage("Truth is God.", nil)}
	client := newTestClient(t, fake)

	reply, err := client.Complete(context.Background(), conversation())
	require.NoError(t, err)
	assert.Equal(t, "Truth is God.", reply)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
	assert.Equal(t, schema.User, fake.input[3].Role)
	assert.Equal(t, "What is truth?", fake.input[3].Content)

	require.NotNil(t, fake.options.MaxTokens)
	assert.Equal(t, 120, *fake.options.MaxTokens)
	assert.Equal(t, float32(0.5), *fake.options.Temperature)
	assert.Equal(t, float32(1), *fake.options.TopP)
}

func TestCompleteWithoutModelIsCredentialError(t *testing.T) {
	client, err := NewClientWithModel(context.Background(), nil, config.ProviderArk)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), conversation())

	var completionErr *CompletionError
	require.ErrorAs(t, err, &completionErr)
	assert.Equal(t, KindCredential, completionErr.Kind)
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestCompleteProviderError(t *testing.T) {
	client := newTestClient(t, &recordingModel{err: errors.New("connection reset")})

	_, err := client.Complete(context.Background(), conversation())
	assert.Equal(t, KindProvider, KindOf(err))
}

func TestCompleteEmptyReply(t *testing.T) {
	for _, reply := range []*schema.Message{schema.AssistantMessage("", nil), schema.AssistantMessage("   ", nil)} {
		client := newTestClient(t, &recordingModel{reply: reply})
		_, err := client.Complete(context.Background(), conversation())
		assert.Equal(t, KindEmptyResponse, KindOf(err))
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), config.AIConfig{Provider: "llama"})
	assert.Error(t, err)
}

func TestNewClientArkWithoutCredentials(t *testing.T) {
	client, err := NewClient(context.Background(), config.AIConfig{Provider: config.ProviderArk})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), conversation())
	assert.Equal(t, KindCredential, KindOf(err))
}

func TestCompletionErrorNotice(t *testing.T) {
	assert.Contains(t, (&CompletionError{Kind: KindCredential}).Notice(), "credentials")
	assert.Contains(t, (&CompletionError{Kind: KindProvider}).Notice(), "could not be reached")
	assert.Contains(t, (&CompletionError{Kind: KindEmptyResponse}).Notice(), "empty")
}

func TestCompleteKeepsTemplateCharactersLiteral(t *testing.T) {
	fake := &recordingModel{reply: schema.AssistantMessage("ok", nil)}
	client := newTestClient(t, fake)

	messages := []chat.Message{
		chat.NewMessage(chat.RoleSystem, "You are {name}."),
		chat.NewMessage(chat.RoleUser, "What does {query} mean?"),
	}
	_, err := client.Complete(context.Background(), messages)
	require.NoError(t, err)

	require.Len(t, fake.input, 2)
	assert.Equal(t, "You are {name}.", fake.input[0].Content)
	assert.Equal(t, "What does {query} mean?", fake.input[1].Content)
}

func TestCompleteRejectsConversationWithoutUserTurn(t *testing.T) {
	fake := &recordingModel{reply: schema.AssistantMessage("ok", nil)}
	client := newTestClient(t, fake)

	_, err := client.Complete(context.Background(), []chat.Message{chat.NewMessage(chat.RoleSystem, "prompt")})
	assert.Equal(t, KindProvider, KindOf(err))
	assert.Nil(t, fake.input)
}
