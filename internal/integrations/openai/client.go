package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"llm-gateway/internal/credentials"
	"llm-gateway/internal/domain"
)

// Client sends chat turns to the OpenAI Chat Completions API. The system
// prompt travels as a leading developer message.
type Client struct {
	sdk  openaisdk.Client
	keys credentials.Source
}

type config struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*config)

func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// NewClient builds the SDK client once. The API key is resolved from keys on
// every call, so a missing key only fails when a request is made.
func NewClient(keys credentials.Source, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("openai: credentials source must not be nil")
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var reqOpts []option.RequestOption
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Client{
		sdk:  openaisdk.NewClient(reqOpts...),
		keys: keys,
	}, nil
}

func (c *Client) Send(ctx context.Context, req domain.ChatRequest) (string, error) {
	params, err := buildParams(req)
	if err != nil {
		return "", err
	}

	apiKey, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("openai: resolve api key: %w", err)
	}

	completion, err := c.sdk.Chat.Completions.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("openai: create chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return completion.Choices[0].Message.Content, nil
}

func buildParams(req domain.ChatRequest) (openaisdk.ChatCompletionNewParams, error) {
	if req.Model == "" {
		return openaisdk.ChatCompletionNewParams{}, errors.New("openai: model must not be empty")
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	messages = append(messages, openaisdk.DeveloperMessage(req.SystemPrompt))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleUser:
			messages = append(messages, openaisdk.UserMessage(m.Content))
		case domain.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(m.Content))
		default:
			return openaisdk.ChatCompletionNewParams{}, fmt.Errorf("openai: unsupported role %q", m.Role)
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(req.MaxTokens))
	}
	return params, nil
}
