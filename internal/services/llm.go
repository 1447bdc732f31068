package services

import "context"

// LLMService is the minimal completion interface a decision provider needs:
// one system prompt, one user message, one text reply.
type LLMService interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
