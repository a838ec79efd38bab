package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"parcel/internal/modules/quote"
)

type fakeProvider struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return f.reply, f.err
}

type fakeOrders map[string]quote.OrderResult

func (f fakeOrders) Last(_ context.Context, sessionID string) (quote.OrderResult, bool, error) {
	o, ok := f[sessionID]
	return o, ok, nil
}

var sample = quote.OrderResult{Source: "Delhi", Destination: "Jaipur", Distance: 281.4, Weight: 2.5, Amount: 2339, Currency: "INR"}

func TestAnswerGroundsPromptInLastOrder(t *testing.T) {
	p := &fakeProvider{reply: " Our price is ₹2339 for this route. "}
	svc := NewService(p, fakeOrders{"s1": sample}, time.Second, nil, nil)

	got, err := svc.Answer(context.Background(), "s1", "Why so expensive?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "Our price is ₹2339 for this route." {
		t.Fatalf("unexpected reply %q", got)
	}
	if p.system != systemInstruction {
		t.Errorf("system instruction not sent")
	}
	for _, want := range []string{
		"- Source: Delhi",
		"- Destination: Jaipur",
		"- Distance: 281.40 km",
		"- Weight: 2.5 kg",
		"- Our Price: ₹2339",
		"User question: Why so expensive?",
	} {
		if !strings.Contains(p.user, want) {
			t.Errorf("user message missing %q:\n%s", want, p.user)
		}
	}
}

func TestAnswerRejectsInvalidQuestionsBeforeCalling(t *testing.T) {
	cases := []string{
		"",
		"   \n\t",
		strings.Repeat("a", MaxQuestionLength+1),
		" " + strings.Repeat("x", MaxQuestionLength),
	}
	for _, q := range cases {
		p := &fakeProvider{reply: "x"}
		svc := NewService(p, fakeOrders{"s1": sample}, time.Second, nil, nil)
		if _, err := svc.Answer(context.Background(), "s1", q); !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("len %d: expected ErrInvalidQuestion, got %v", len(q), err)
		}
		if p.calls != 0 {
			t.Fatalf("len %d: provider must not be called", len(q))
		}
	}
}

func TestAnswerAcceptsMaxLengthMultibyteQuestion(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	svc := NewService(p, fakeOrders{"s1": sample}, time.Second, nil, nil)
	if _, err := svc.Answer(context.Background(), "s1", strings.Repeat("₹", MaxQuestionLength)); err != nil {
		t.Fatalf("500 characters should be accepted: %v", err)
	}
}

func TestAnswerWithoutOrder(t *testing.T) {
	p := &fakeProvider{reply: "x"}
	svc := NewService(p, fakeOrders{"other": sample}, time.Second, nil, nil)
	if _, err := svc.Answer(context.Background(), "s1", "How long will it take?"); !errors.Is(err, ErrNoContext) {
		t.Fatalf("expected ErrNoContext, got %v", err)
	}
	if p.calls != 0 {
		t.Fatal("provider must not be called without context")
	}
}

func TestAnswerProviderFailures(t *testing.T) {
	tests := []struct {
		name string
		p    *fakeProvider
	}{
		{name: "error", p: &fakeProvider{err: errors.New("429 rate limited")}},
		{name: "empty reply", p: &fakeProvider{reply: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.p, fakeOrders{"s1": sample}, time.Second, nil, nil)
			if _, err := svc.Answer(context.Background(), "s1", "hi?"); !errors.Is(err, ErrAssistantUnavailable) {
				t.Fatalf("expected ErrAssistantUnavailable, got %v", err)
			}
		})
	}
}

type blockingProvider struct{}

func (blockingProvider) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAnswerTimeout(t *testing.T) {
	svc := NewService(blockingProvider{}, fakeOrders{"s1": sample}, 20*time.Millisecond, nil, nil)
	if _, err := svc.Answer(context.Background(), "s1", "hello?"); !errors.Is(err, ErrAssistantUnavailable) {
		t.Fatalf("expected ErrAssistantUnavailable, got %v", err)
	}
}

func TestAnswerCancelledCallersDoNotOpenBreaker(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("post chat completion: %w", context.Canceled)}
	svc := NewService(p, fakeOrders{"s1": sample}, time.Second, nil, nil)
	for i := 0; i < 10; i++ {
		if _, err := svc.Answer(context.Background(), "s1", "Is it insured?"); !errors.Is(err, ErrAssistantUnavailable) {
			t.Fatalf("expected ErrAssistantUnavailable, got %v", err)
		}
	}

	gone, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		_, _ = svc.Answer(gone, "s1", "Is it insured?")
	}

	p.err, p.reply = nil, "Yes."
	if got, err := svc.Answer(context.Background(), "s1", "Is it insured?"); err != nil || got != "Yes." {
		t.Fatalf("breaker should still be closed: reply=%q err=%v", got, err)
	}
}
