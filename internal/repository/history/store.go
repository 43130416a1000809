// Package history keeps bounded per-conversation turns for the response generator.
package history

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/ingres/internal/domain"
)

// Store holds the last turns of each conversation in an expiring LRU.
// Least recently used conversations are evicted once maxConversations is
// reached; idle conversations expire after ttl.
type Store struct {
	mu       sync.Mutex
	cache    *expirable.LRU[string, []domain.Turn]
	maxTurns int
}

// New creates a history store.
func New(maxConversations, maxTurns int, ttl time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = 1
	}
	return &Store{
		cache:    expirable.NewLRU[string, []domain.Turn](maxConversations, nil, ttl),
		maxTurns: maxTurns,
	}
}

// Turns returns a copy of the stored turns, oldest first.
func (s *Store) Turns(conversationID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.cache.Get(conversationID)
	if !ok {
		return nil
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records a turn, dropping the oldest ones beyond maxTurns.
func (s *Store) Append(conversationID string, turn domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, _ := s.cache.Get(conversationID)
	next := make([]domain.Turn, 0, min(len(turns)+1, s.maxTurns))
	if drop := len(turns) + 1 - s.maxTurns; drop > 0 {
		turns = turns[drop:]
	}
	next = append(next, turns...)
	next = append(next, turn)
	s.cache.Add(conversationID, next)
}

// Forget removes a conversation.
func (s *Store) Forget(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(conversationID)
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	return s.cache.Len()
}
