// README: Assistant answers follow-up questions grounded in the session's last quote.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"parcel/internal/ai"
	"parcel/internal/infra"
	"parcel/internal/modules/quote"
)

const MaxQuestionLength = 500

var (
	ErrInvalidQuestion      = errors.New("invalid question")
	ErrNoContext            = errors.New("no parcel quote to answer about")
	ErrAssistantUnavailable = errors.New("chat service unavailable")
)

// ContextSource yields the order a session's questions are about.
type ContextSource interface {
	Last(ctx context.Context, sessionID string) (quote.OrderResult, bool, error)
}

type Service struct {
	provider ai.LLMProvider
	orders   ContextSource
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	metrics  *infra.Metrics
}

func NewService(provider ai.LLMProvider, orders ContextSource, timeout time.Duration, logger *zap.Logger, metrics *infra.Metrics) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		orders:   orders,
		timeout:  timeout,
		breaker:  infra.NewCircuitBreaker("assistant", nil),
		logger:   logger,
		metrics:  metrics,
	}
}

// Answer returns the model's reply to question about the session's last order.
func (s *Service) Answer(ctx context.Context, sessionID, question string) (string, error) {
	reply, err := s.answer(ctx, sessionID, question)
	s.metrics.ObserveAssistant(outcome(err))
	if err != nil {
		s.logger.Info("assistant answer failed", zap.String("session", sessionID), zap.Error(err))
		return "", err
	}
	return reply, nil
}

func (s *Service) answer(ctx context.Context, sessionID, question string) (string, error) {
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return "", ErrInvalidQuestion
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrInvalidQuestion
	}

	order, ok, err := s.orders.Last(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("%w: load last order: %v", ErrAssistantUnavailable, err)
	}
	if !ok {
		return "", ErrNoContext
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Complete(ctx, systemInstruction, userMessage(order, question))
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	reply := strings.TrimSpace(v.(string))
	if reply == "" {
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, ai.ErrEmptyReply)
	}
	return reply, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidQuestion):
		return "invalid_question"
	case errors.Is(err, ErrNoContext):
		return "no_context"
	default:
		return "unavailable"
	}
}
