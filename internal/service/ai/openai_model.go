package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIConfig configures the OpenAI-backed chat model.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIChatModel adapts the OpenAI chat completions API to eino's
// model.ChatModel so it can sit next to the Ark model.
type OpenAIChatModel struct {
	client openai.Client
	model  string
	apiKey string
}

// NewOpenAIChatModel builds the adapter. The SDK's automatic retries are
// turned off: each Generate issues exactly one request.
func NewOpenAIChatModel(cfg OpenAIConfig) *OpenAIChatModel {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = ModelName
	}

	return &OpenAIChatModel{
		client: openai.NewClient(opts...),
		model:  modelName,
		apiKey: cfg.APIKey,
	}
}

// Generate sends one chat completion request.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if strings.TrimSpace(m.apiKey) == "" {
		return nil, ErrMissingCredential
	}

	options := model.GetCommonOptions(&model.Options{Model: &m.model}, opts...)

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(*options.Model),
		Messages: toOpenAIMessages(input),
	}
	if options.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(*options.Temperature))
	}
	if options.TopP != nil {
		params.TopP = openai.Float(float64(*options.TopP))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream yields the whole reply as a single chunk; replies are short and are
// rendered in one piece.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is unsupported; the persona chat never offers tools.
func (m *OpenAIChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("openai chat model: tool calling is not supported")
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
