package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"llm-gateway/internal/credentials"
	"llm-gateway/internal/domain"
)

// Client sends chat turns to the Anthropic Messages API. The system prompt is
// a separate request parameter, never a message.
type Client struct {
	sdk  anthropicsdk.Client
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

func NewClient(keys credentials.Source, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("anthropic: credentials source must not be nil")
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
		sdk:  anthropicsdk.NewClient(reqOpts...),
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
		return "", fmt.Errorf("anthropic: resolve api key: %w", err)
	}

	message, err := c.sdk.Messages.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("anthropic: create message: %w", err)
	}
	if len(message.Content) == 0 {
		return "", errors.New("anthropic: no content blocks in response")
	}
	return message.Content[0].Text, nil
}

func buildParams(req domain.ChatRequest) (anthropicsdk.MessageNewParams, error) {
	if req.Model == "" {
		return anthropicsdk.MessageNewParams{}, errors.New("anthropic: model must not be empty")
	}
	if req.MaxTokens <= 0 {
		return anthropicsdk.MessageNewParams{}, errors.New("anthropic: max tokens must be positive")
	}

	messages := make([]anthropicsdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleUser:
			messages = append(messages, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		case domain.RoleAssistant:
			messages = append(messages, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		default:
			return anthropicsdk.MessageNewParams{}, fmt.Errorf("anthropic: unsupported role %q", m.Role)
		}
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
	}
	// The API rejects empty text blocks; an omitted system prompt is the
	// same as an empty one.
	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	return params, nil
}
