package services

import (
	"context"
	"fmt"
)

// MockLLM is a test double for LLMService. Responses are returned in order;
// when the queue is exhausted it returns Default, or an error if Default is
// empty.
type MockLLM struct {
	Responses []string
	Default   string

	// Err, when set, is returned from every call.
	Err error

	// Calls records every (system, user) pair for assertions.
	Calls [][2]string
}

var _ LLMService = (*MockLLM)(nil)

func (m *MockLLM) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	m.Calls = append(m.Calls, [2]string{systemPrompt, userMessage})
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}
	if m.Default != "" {
		return m.Default, nil
	}
	return "", fmt.Errorf("mock llm: no responses queued")
}
