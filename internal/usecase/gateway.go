package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"llm-gateway/internal/domain"
	"llm-gateway/internal/registry"
)

const defaultMaxTokens = 4096

// ChatSender is the uniform capability every provider adapter offers: send a
// chat, get the reply text back.
type ChatSender interface {
	Send(ctx context.Context, req domain.ChatRequest) (string, error)
}

type ModelRegistry interface {
	Lookup(model string) (registry.Provider, bool)
	FirstAvailable() (string, bool)
	Models() []string
}

type GatewayService struct {
	models       ModelRegistry
	senders      map[registry.Provider]ChatSender
	systemPrompt string
	maxTokens    int
}

type RespondInput struct {
	Messages     []domain.ChatMessage
	Model        string
	SystemPrompt string
	MaxTokens    int
}

type MessageInput struct {
	Messages     []domain.ChatMessage
	Model        string
	SystemPrompt string
}

type NameThreadInput struct {
	Messages []domain.ChatMessage
}

func NewGatewayService(models ModelRegistry, openaiSender, anthropicSender ChatSender, systemPrompt string, maxTokens int) (*GatewayService, error) {
	if models == nil {
		return nil, errors.New("usecase: model registry must not be nil")
	}
	if openaiSender == nil {
		return nil, errors.New("usecase: openai sender must not be nil")
	}
	if anthropicSender == nil {
		return nil, errors.New("usecase: anthropic sender must not be nil")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &GatewayService{
		models: models,
		senders: map[registry.Provider]ChatSender{
			registry.ProviderOpenAI:    openaiSender,
			registry.ProviderAnthropic: anthropicSender,
		},
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
	}, nil
}

// Respond routes the conversation to the provider that owns in.Model and
// returns its reply in canonical form. The returned Model is always the
// identifier the caller asked for.
func (s *GatewayService) Respond(ctx context.Context, in RespondInput) (domain.Response, error) {
	if err := validateMessages(in.Messages); err != nil {
		return domain.Response{}, err
	}

	provider, ok := s.models.Lookup(in.Model)
	if !ok {
		return domain.Response{}, newError(ErrorUnsupportedModel, "model_not_registered",
			fmt.Errorf("%w: %q", ErrUnsupportedModel, in.Model))
	}
	sender, ok := s.senders[provider]
	if !ok {
		return domain.Response{}, newError(ErrorInternal, "provider_not_wired", fmt.Errorf("usecase: no sender for provider %q", provider))
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.maxTokens
	}

	slog.DebugContext(ctx, "dispatching chat", "provider", provider, "model", in.Model, "messages", len(in.Messages), "max_tokens", maxTokens)

	content, err := sender.Send(ctx, domain.ChatRequest{
		Model:        in.Model,
		Messages:     in.Messages,
		SystemPrompt: in.SystemPrompt,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return domain.Response{}, newError(ErrorUpstream, string(provider)+"_error", err)
	}

	return domain.Response{
		Content: content,
		Model:   in.Model,
		Role:    domain.RoleAssistant,
	}, nil
}

// SendMessage answers a chat turn, falling back to the configured system
// prompt when the caller supplies none.
func (s *GatewayService) SendMessage(ctx context.Context, in MessageInput) (domain.Response, error) {
	systemPrompt := in.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = s.systemPrompt
	}
	return s.Respond(ctx, RespondInput{
		Messages:     in.Messages,
		Model:        in.Model,
		SystemPrompt: systemPrompt,
		MaxTokens:    s.maxTokens,
	})
}

// NameThread asks the first configured model for a short display name for
// the conversation. The name is returned as the response content.
func (s *GatewayService) NameThread(ctx context.Context, in NameThreadInput) (domain.Response, error) {
	if err := validateMessages(in.Messages); err != nil {
		return domain.Response{}, err
	}
	model, err := s.FirstAvailableModel()
	if err != nil {
		return domain.Response{}, err
	}
	return s.Respond(ctx, RespondInput{
		Messages:     buildNamingMessages(in.Messages),
		Model:        model,
		SystemPrompt: s.systemPrompt,
		MaxTokens:    nameThreadMaxTokens,
	})
}

func (s *GatewayService) FirstAvailableModel() (string, error) {
	model, ok := s.models.FirstAvailable()
	if !ok {
		return "", newError(ErrorNoAvailableModel, "no_models_configured", ErrNoAvailableModel)
	}
	return model, nil
}

func (s *GatewayService) Models() []string {
	return s.models.Models()
}

func validateMessages(messages []domain.ChatMessage) error {
	for i, m := range messages {
		if !domain.ValidRole(m.Role) {
			return newError(ErrorInvalidInput, "invalid_role", fmt.Errorf("usecase: message %d has role %q", i, m.Role))
		}
	}
	return nil
}
