package providers

import (
	"context"
	"fmt"
)

// Roles of a conversation turn
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is an earlier turn of the conversation
type Message struct {
	Role    string
	Content string
}

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	// System is sent as the system instruction when the provider supports one
	System string
	// History holds the earlier turns, oldest first
	History []Message
	Prompt  string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Generate(ctx context.Context, config Config) (string, error)
}

// Names lists the provider names accepted by the agent command
var Names = []string{"gemini", "openai", "ollama"}

// DefaultModel returns the model used when none is configured
func DefaultModel(name string) (string, error) {
	switch name {
	case "gemini":
		return "gemini-2.5-flash", nil
	case "openai":
		return "gpt-4o-mini", nil
	case "ollama":
		return "llama3.2", nil
	}
	return "", fmt.Errorf("unknown provider %q (want one of %v)", name, Names)
}
