package ai

import (
	"context"
	"errors"
)

// ErrEmptyReply is returned when a provider answers without any text.
var ErrEmptyReply = errors.New("empty reply from model")

// LLMProvider defines the contract for interacting with AI models.
// This interface allows for swapping Gemini and OpenAI-compatible backends.
type LLMProvider interface {
	// Complete sends one system instruction and one user message and returns
	// the model's reply text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options bounds every completion.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}
