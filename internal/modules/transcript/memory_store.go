package transcript

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	seq   int
	convs map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string][]Message)}
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, msg Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.convs[conversationID] = append(s.convs[conversationID], msg)
	return strconv.Itoa(s.seq), nil
}

// Messages returns a copy of a conversation's log.
func (s *MemoryStore) Messages(conversationID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.convs[conversationID]...)
}
