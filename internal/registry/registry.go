package registry

import (
	"slices"
	"strings"
)

// Provider names one of the upstream LLM vendors a model can be routed to.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Registry holds the configured model identifiers per provider. It is built
// once at startup and never mutated, so concurrent readers need no locking.
type Registry struct {
	openai    []string
	anthropic []string
}

func New(openaiModels, anthropicModels []string) *Registry {
	return &Registry{
		openai:    clean(openaiModels),
		anthropic: clean(anthropicModels),
	}
}

// ParseList splits a comma-separated model list. Order and duplicates are kept.
func ParseList(raw string) []string {
	return clean(strings.Split(raw, ","))
}

// Lookup returns the provider that owns model. OpenAI is checked first, so an
// identifier configured under both providers always routes to OpenAI.
func (r *Registry) Lookup(model string) (Provider, bool) {
	if model == "" {
		return "", false
	}
	if slices.Contains(r.openai, model) {
		return ProviderOpenAI, true
	}
	if slices.Contains(r.anthropic, model) {
		return ProviderAnthropic, true
	}
	return "", false
}

// FirstAvailable returns the first OpenAI model, falling back to the first
// Anthropic model.
func (r *Registry) FirstAvailable() (string, bool) {
	models := r.Models()
	if len(models) == 0 {
		return "", false
	}
	return models[0], true
}

// Models lists OpenAI identifiers followed by Anthropic identifiers. The
// result is never nil.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.openai)+len(r.anthropic))
	out = append(out, r.openai...)
	return append(out, r.anthropic...)
}

func clean(models []string) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
