package transcript

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore appends messages to the chat_messages table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, conversationID string, msg Message) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO chat_messages (id, conversation_id, sender, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id,
		conversationID,
		string(msg.Sender),
		msg.Text,
		time.UnixMilli(msg.Timestamp).UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}
