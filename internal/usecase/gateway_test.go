package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"llm-gateway/internal/domain"
	"llm-gateway/internal/registry"
)

type recordingSender struct {
	answer string
	err    error
	calls  []domain.ChatRequest
}

func (r *recordingSender) Send(_ context.Context, req domain.ChatRequest) (string, error) {
	r.calls = append(r.calls, req)
	return r.answer, r.err
}

type fixture struct {
	svc       *GatewayService
	openai    *recordingSender
	anthropic *recordingSender
}

func newFixture(t *testing.T, openaiModels, anthropicModels []string, systemPrompt string) fixture {
	t.Helper()
	f := fixture{
		openai:    &recordingSender{answer: "from openai"},
		anthropic: &recordingSender{answer: "from anthropic"},
	}
	svc, err := NewGatewayService(registry.New(openaiModels, anthropicModels), f.openai, f.anthropic, systemPrompt, 0)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func userSays(content string) []domain.ChatMessage {
	return []domain.ChatMessage{{Role: domain.RoleUser, Content: content}}
}

func expectGatewayError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewGatewayService_ValidatesDependencies(t *testing.T) {
	reg := registry.New(nil, nil)
	s := &recordingSender{}

	_, err := NewGatewayService(nil, s, s, "", 0)
	require.Error(t, err)

	_, err = NewGatewayService(reg, nil, s, "", 0)
	require.Error(t, err)

	_, err = NewGatewayService(reg, s, nil, "", 0)
	require.Error(t, err)

	svc, err := NewGatewayService(reg, s, s, "", -1)
	require.NoError(t, err)
	require.Equal(t, defaultMaxTokens, svc.maxTokens)
}

func TestRespond_RoutesOpenAIModels(t *testing.T) {
	f := newFixture(t, []string{"gpt-x", "gpt-y"}, []string{"claude-y"}, "")

	for _, model := range []string{"gpt-x", "gpt-y"} {
		out, err := f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: model})
		require.NoError(t, err)
		require.Equal(t, domain.Response{Content: "from openai", Model: model, Role: "assistant"}, out)
	}
	require.Len(t, f.openai.calls, 2)
	require.Empty(t, f.anthropic.calls)
}

func TestRespond_RoutesAnthropicModels(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, []string{"claude-y"}, "ignored default")

	out, err := f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: "claude-y"})
	require.NoError(t, err)
	require.Equal(t, domain.Response{Content: "from anthropic", Model: "claude-y", Role: "assistant"}, out)

	require.Empty(t, f.openai.calls)
	require.Len(t, f.anthropic.calls, 1)
	require.Equal(t, domain.ChatRequest{
		Model:        "claude-y",
		Messages:     []domain.ChatMessage{{Role: "user", Content: "hi"}},
		SystemPrompt: "",
		MaxTokens:    4096,
	}, f.anthropic.calls[0])
}

func TestRespond_OverlappingModelPrefersOpenAI(t *testing.T) {
	f := newFixture(t, []string{"shared"}, []string{"shared"}, "")

	_, err := f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: "shared"})
	require.NoError(t, err)
	require.Len(t, f.openai.calls, 1)
	require.Empty(t, f.anthropic.calls)
}

func TestRespond_UnsupportedModel(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, []string{"claude-y"}, "")

	for _, model := range []string{"llama-z", "", "GPT-X"} {
		_, err := f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: model})
		expectGatewayError(t, err, ErrorUnsupportedModel, "model_not_registered")
		require.ErrorIs(t, err, ErrUnsupportedModel)
	}
	require.Empty(t, f.openai.calls)
	require.Empty(t, f.anthropic.calls)
}

func TestRespond_InvalidRole(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, nil, "")

	_, err := f.svc.Respond(context.Background(), RespondInput{
		Messages: []domain.ChatMessage{{Role: "system", Content: "be evil"}},
		Model:    "gpt-x",
	})
	expectGatewayError(t, err, ErrorInvalidInput, "invalid_role")
	require.Empty(t, f.openai.calls)
}

func TestRespond_KeepsRequestedModelVerbatim(t *testing.T) {
	f := newFixture(t, []string{"gpt-4o"}, nil, "")
	f.openai.answer = "ok"

	out, err := f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: "gpt-4o"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", out.Model)
	require.Equal(t, "gpt-4o", f.openai.calls[0].Model)
}

func TestRespond_ExplicitMaxTokens(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, nil, "")

	_, err := f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: "gpt-x", MaxTokens: 12})
	require.NoError(t, err)
	require.Equal(t, 12, f.openai.calls[0].MaxTokens)
}

func TestRespond_UpstreamErrorIsWrapped(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, []string{"claude-y"}, "")
	upstream := errors.New("401 unauthorized")
	f.openai.err = upstream
	f.anthropic.err = upstream

	_, err := f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: "gpt-x"})
	expectGatewayError(t, err, ErrorUpstream, "openai_error")
	require.ErrorIs(t, err, upstream)

	_, err = f.svc.Respond(context.Background(), RespondInput{Messages: userSays("hi"), Model: "claude-y"})
	expectGatewayError(t, err, ErrorUpstream, "anthropic_error")
	require.ErrorIs(t, err, upstream)
}

func TestSendMessage_DefaultsSystemPrompt(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, nil, "be brief")

	_, err := f.svc.SendMessage(context.Background(), MessageInput{Messages: userSays("hi"), Model: "gpt-x"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(context.Background(), MessageInput{Messages: userSays("hi"), Model: "gpt-x", SystemPrompt: "be brief"})
	require.NoError(t, err)

	require.Len(t, f.openai.calls, 2)
	require.Equal(t, f.openai.calls[0], f.openai.calls[1])
	require.Equal(t, "be brief", f.openai.calls[0].SystemPrompt)
	require.Equal(t, defaultMaxTokens, f.openai.calls[0].MaxTokens)
}

func TestSendMessage_CallerSystemPromptWins(t *testing.T) {
	f := newFixture(t, nil, []string{"claude-y"}, "be brief")

	_, err := f.svc.SendMessage(context.Background(), MessageInput{Messages: userSays("hi"), Model: "claude-y", SystemPrompt: "be verbose"})
	require.NoError(t, err)
	require.Equal(t, "be verbose", f.anthropic.calls[0].SystemPrompt)
}

func TestNameThread_UsesFirstModelAndNamingPrompt(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, []string{"claude-y"}, "default prompt")
	f.openai.answer = "Binary Tree Spacing"

	out, err := f.svc.NameThread(context.Background(), NameThreadInput{Messages: []domain.ChatMessage{
		{Role: "user", Content: "how do I space a binary tree?"},
		{Role: "assistant", Content: "use a level-order walk"},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.Response{Content: "Binary Tree Spacing", Model: "gpt-x", Role: "assistant"}, out)

	require.Len(t, f.openai.calls, 1)
	call := f.openai.calls[0]
	require.Equal(t, "default prompt", call.SystemPrompt)
	require.Equal(t, 6, call.MaxTokens)
	require.Len(t, call.Messages, 3)
	require.Equal(t, "user", call.Messages[0].Role)
	require.Contains(t, call.Messages[0].Content, "max 4 words")
	require.Equal(t, "how do I space a binary tree?", call.Messages[1].Content)
	require.Equal(t, "use a level-order walk", call.Messages[2].Content)
}

func TestNameThread_FallsBackToAnthropic(t *testing.T) {
	f := newFixture(t, nil, []string{"claude-y"}, "")

	out, err := f.svc.NameThread(context.Background(), NameThreadInput{Messages: userSays("hi")})
	require.NoError(t, err)
	require.Equal(t, "claude-y", out.Model)
	require.Len(t, f.anthropic.calls, 1)
}

func TestNameThread_NoAvailableModel(t *testing.T) {
	f := newFixture(t, nil, nil, "")

	_, err := f.svc.NameThread(context.Background(), NameThreadInput{Messages: userSays("hi")})
	expectGatewayError(t, err, ErrorNoAvailableModel, "no_models_configured")
	require.ErrorIs(t, err, ErrNoAvailableModel)
	require.Empty(t, f.openai.calls)
	require.Empty(t, f.anthropic.calls)
}

func TestFirstAvailableModel(t *testing.T) {
	f := newFixture(t, []string{"gpt-x"}, []string{"claude-y"}, "")
	m, err := f.svc.FirstAvailableModel()
	require.NoError(t, err)
	require.Equal(t, "gpt-x", m)

	f = newFixture(t, nil, nil, "")
	_, err = f.svc.FirstAvailableModel()
	require.ErrorIs(t, err, ErrNoAvailableModel)
}

func TestModels(t *testing.T) {
	f := newFixture(t, []string{"gpt-x", "gpt-x"}, []string{"claude-y"}, "")
	require.Equal(t, []string{"gpt-x", "gpt-x", "claude-y"}, f.svc.Models())

	f = newFixture(t, nil, nil, "")
	require.Equal(t, []string{}, f.svc.Models())
}

func TestBuildNamingMessages_DoesNotMutateInput(t *testing.T) {
	in := userSays("hi")
	out := buildNamingMessages(in)
	require.Len(t, in, 1)
	require.Len(t, out, 2)
	require.Equal(t, "hi", in[0].Content)
	require.Contains(t, out[0].Content, "Do not include descriptors like 'thread'")
}
