package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	opts   Options
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string, opts Options) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if opts.Model == "" {
		// Gemini 2.0 Flash for low latency and cost efficiency.
		opts.Model = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: client, opts: opts}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// Complete generates a reply. A fresh GenerativeModel is built per call
// because the system instruction is set on the model.
func (p *GeminiProvider) Complete(ctx context.Context, system, user string) (string, error) {
	model := p.client.GenerativeModel(p.opts.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	model.SetTemperature(p.opts.Temperature)
	if p.opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(p.opts.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w", ErrEmptyReply)
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			reply.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(reply.String())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyReply)
	}
	return text, nil
}
