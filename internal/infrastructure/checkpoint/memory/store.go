package memory

import (
	"context"
	"sync"
	"time"

	"github.com/greentravel/invoice-agent/internal/core/domain"
)

// Store keeps turns in process memory. Used when no database is configured;
// history survives across questions but not across restarts.
type Store struct {
	mu      sync.RWMutex
	byKey   map[string][]domain.TurnRecord
	maxKeep int
}

func NewStore(maxTurnsPerSession int) *Store {
	if maxTurnsPerSession <= 0 {
		maxTurnsPerSession = 50
	}
	return &Store{
		byKey:   make(map[string][]domain.TurnRecord),
		maxKeep: maxTurnsPerSession,
	}
}

func (s *Store) AppendTurn(ctx context.Context, turn domain.TurnRecord) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.byKey[turn.SessionKey], turn)
	if len(turns) > s.maxKeep {
		turns = turns[len(turns)-s.maxKeep:]
	}
	s.byKey[turn.SessionKey] = turns
	return nil
}

func (s *Store) ListRecentTurns(ctx context.Context, sessionKey string, limit int) ([]domain.TurnRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.byKey[sessionKey]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.TurnRecord, len(turns))
	copy(out, turns)
	return out, nil
}
