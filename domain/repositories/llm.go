package repositories

import "context"

// ChatCompletion abstracts any chat/LLM completion provider.
type ChatCompletion interface {
	// Complete sends one ordered list of role-tagged turns and returns the
	// model's reply text. Providers own their bounded retry policy; the
	// terminal error after exhaustion is provider-typed.
	Complete(ctx context.Context, turns []ChatMessage) (string, error)
}

// ChatMessage represents a single role-tagged turn sent to the provider.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the type of turn sender.
type Role string

const (
	SystemRole    Role = "system"
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)
