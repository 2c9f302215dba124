package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is everything a provider needs to produce a single reply.
type ChatRequest struct {
	Model        string
	Messages     []ChatMessage
	SystemPrompt string
	MaxTokens    int
}

// Response is the canonical reply returned to every caller regardless of
// which provider served it.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Role    string `json:"role"`
}

// ValidRole reports whether role may appear in a caller-supplied message.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
