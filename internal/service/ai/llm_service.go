package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"

	"github.com/zhouzirui/persona-chat/internal/config"
	"github.com/zhouzirui/persona-chat/internal/model/chat"
)

// Fixed generation parameters. Callers cannot override them.
const (
	ModelName   = "gpt-4o-mini"
	MaxTokens   = 120
	Temperature = float32(0.5)
	TopP        = float32(1)
)

var errMalformedConversation = errors.New("conversation must end with a user message")

// Client issues one completion request per call against the configured
// provider.
type Client struct {
	chain    compose.Runnable[map[string]any, *schema.Message]
	provider string
}

// NewClient builds a Client for cfg.Provider. A missing credential is not an
// error here; every Complete call reports it instead.
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		chatModel := NewOpenAIChatModel(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   ModelName,
		})
		return NewClientWithModel(ctx, chatModel, cfg.Provider)
	case config.ProviderArk:
		if !cfg.Enabled() {
			log.Println("[ai] Ark credentials or model not configured; completions will fail until they are set")
			return NewClientWithModel(ctx, nil, cfg.Provider)
		}
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewClientWithModel(ctx, chatModel, cfg.Provider)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// NewClientWithModel compiles the prompt chain around an existing chat model.
// A nil model behaves like a missing credential.
func NewClientWithModel(ctx context.Context, chatModel model.BaseChatModel, provider string) (*Client, error) {
	if chatModel == nil {
		return &Client{provider: provider}, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Client{chain: runnable, provider: provider}, nil
}

// Complete sends the full ordered conversation and returns the reply text.
// Failures are always *CompletionError; the caller decides what to show.
func (c *Client) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	if c.chain == nil {
		return "", &CompletionError{Kind: KindCredential, Err: ErrMissingCredential}
	}

	input, err := buildChainInput(messages)
	if err != nil {
		return "", &CompletionError{Kind: KindProvider, Err: err}
	}

	response, err := c.chain.Invoke(ctx, input, compose.WithChatModelOption(
		model.WithMaxTokens(MaxTokens),
		model.WithTemperature(Temperature),
		model.WithTopP(TopP),
	))
	if err != nil {
		return "", classify(err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", &CompletionError{Kind: KindEmptyResponse, Err: ErrEmptyResponse}
	}

	log.Printf("[ai] generated response provider=%s, turns=%d, length=%d", c.provider, len(messages), len(response.Content))
	return response.Content, nil
}

func classify(err error) *CompletionError {
	if errors.Is(err, ErrMissingCredential) {
		return &CompletionError{Kind: KindCredential, Err: err}
	}
	if errors.Is(err, ErrEmptyResponse) {
		return &CompletionError{Kind: KindEmptyResponse, Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return &CompletionError{Kind: KindCredential, Err: err}
		}
	}
	return &CompletionError{Kind: KindProvider, Err: err}
}

// buildChainInput splits the stored conversation into the template's system
// prompt, prior turns and the newest user message.
func buildChainInput(messages []chat.Message) (map[string]any, error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != chat.RoleUser {
		return nil, errMalformedConversation
	}

	query := messages[len(messages)-1].Content
	earlier := messages[:len(messages)-1]

	var system string
	if len(earlier) > 0 && earlier[0].Role == chat.RoleSystem {
		system = earlier[0].Content
		earlier = earlier[1:]
	}

	return map[string]any{
		"system":  system,
		"history": toSchemaMessages(earlier),
		"query":   query,
	}, nil
}

func toSchemaMessages(messages []chat.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		default:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}
	return out
}
