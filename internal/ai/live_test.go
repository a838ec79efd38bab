package ai

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// Live provider checks run only when PARCEL_LIVE_AI_TESTS=1 and the provider key is set.
func liveProviders(t *testing.T) map[string]LLMProvider {
	t.Helper()
	if os.Getenv("PARCEL_LIVE_AI_TESTS") != "1" {
		t.Skip("PARCEL_LIVE_AI_TESTS not set; skipping live provider tests")
	}

	providers := map[string]LLMProvider{}
	opts := Options{Temperature: 0.2, MaxTokens: 60}
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		p, err := NewGeminiProvider(context.Background(), key, opts)
		if err != nil {
			t.Fatalf("gemini init: %v", err)
		}
		t.Cleanup(p.Close)
		providers["gemini"] = p
	}
	if key := strings.TrimSpace(os.Getenv("GROQ_API_KEY")); key != "" {
		providers["openai"] = NewOpenAIProvider(DefaultOpenAIBaseURL, key, opts)
	}
	if len(providers) == 0 {
		t.Skip("no provider keys set")
	}
	return providers
}

func TestLiveCompleteReturnsText(t *testing.T) {
	for name, p := range liveProviders(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			reply, err := p.Complete(ctx, "You answer in one short sentence.", "Say hello.")
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if strings.TrimSpace(reply) == "" {
				t.Fatal("expected non-empty reply")
			}
			t.Logf("%s reply: %s", name, reply)
		})
	}
}
