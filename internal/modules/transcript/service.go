// README: Transcript service validates chat messages and appends them to the configured store.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"parcel/internal/infra"
)

// Store appends one message to a conversation and returns its key.
type Store interface {
	Append(ctx context.Context, conversationID string, msg Message) (string, error)
}

type Service struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
	metrics *infra.Metrics
}

func NewService(store Store, timeout time.Duration, logger *zap.Logger, metrics *infra.Metrics) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, timeout: timeout, now: time.Now, logger: logger, metrics: metrics}
}

// Append validates msg, stamps it when it has no timestamp and stores it.
func (s *Service) Append(ctx context.Context, conversationID string, msg Message) (string, error) {
	keys, err := s.AppendAll(ctx, conversationID, []Message{msg})
	if err != nil {
		return "", err
	}
	return keys[0], nil
}

// AppendAll validates the whole batch before writing anything, then writes
// the messages in order. A write failure stops the batch; earlier messages
// stay written.
func (s *Service) AppendAll(ctx context.Context, conversationID string, msgs []Message) ([]string, error) {
	keys, err := s.appendAll(ctx, conversationID, msgs)
	switch {
	case err == nil:
		s.metrics.ObserveTranscript("ok")
	case errors.Is(err, ErrInvalidMessage):
		s.metrics.ObserveTranscript("invalid")
	default:
		s.metrics.ObserveTranscript("error")
		s.logger.Error("transcript append failed",
			zap.String("conversation", conversationID),
			zap.Int("written", len(keys)),
			zap.Error(err),
		)
	}
	return keys, err
}

func (s *Service) appendAll(ctx context.Context, conversationID string, msgs []Message) ([]string, error) {
	if conversationID == "" || len(msgs) == 0 {
		return nil, ErrInvalidMessage
	}
	batch := make([]Message, len(msgs))
	for i, m := range msgs {
		n, err := m.normalize()
		if err != nil {
			return nil, err
		}
		if n.Timestamp == 0 {
			n.Timestamp = s.now().UnixMilli()
		}
		batch[i] = n
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	keys := make([]string, 0, len(batch))
	for _, m := range batch {
		key, err := s.store.Append(ctx, conversationID, m)
		if err != nil {
			return keys, fmt.Errorf("append message: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
