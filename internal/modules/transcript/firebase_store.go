package transcript

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/db"
)

// firebaseMessage is the RTDB node layout under messages/{conversationId}.
type firebaseMessage struct {
	Text       string `json:"text"`
	SenderType string `json:"senderType"`
	CreatedAt  int64  `json:"createdAt"`
}

// FirebaseStore appends messages to the Realtime Database.
type FirebaseStore struct {
	client *db.Client
}

func NewFirebaseStore(client *db.Client) *FirebaseStore {
	return &FirebaseStore{client: client}
}

func (s *FirebaseStore) Append(ctx context.Context, conversationID string, msg Message) (string, error) {
	ref, err := s.client.NewRef("messages/"+conversationID).Push(ctx, firebaseMessage{
		Text:       msg.Text,
		SenderType: string(msg.Sender),
		CreatedAt:  msg.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("firebase push: %w", err)
	}
	return ref.Key, nil
}
