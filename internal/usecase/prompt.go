package usecase

import (
	"strings"

	"llm-gateway/internal/domain"
)

const nameThreadMaxTokens = 6

func buildNamingPrompt() string {
	return strings.Join([]string{
		"You are responsible for naming conversation threads.",
		"You will receive the opening messages of a conversation between a user and an assistant.",
		"Please respond with a short name for that conversation, max 4 words. Be specific and concise.",
		"Prefer to use distinct words that standout.",
		"Do not include descriptors like 'thread' or 'chat' or 'conversation' at all.",
		"Examples of good names: Growth Rate Calculation, Binary Tree Spacing, Pandemic Stock Surges",
	}, " ")
}

func buildNamingMessages(messages []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(messages)+1)
	out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: buildNamingPrompt()})
	return append(out, messages...)
}
