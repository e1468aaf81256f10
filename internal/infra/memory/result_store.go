package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// ResultStore keeps final rankings in memory. It is the default when no
// database is configured.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.GameResult // keyed by session id
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.GameResult)}
}

func (s *ResultStore) SaveResults(_ context.Context, result domain.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.Entries = append([]domain.LeaderboardEntry(nil), result.Entries...)
	s.results[result.SessionID] = result
	return nil
}

// Results returns the stored ranking of a session.
func (s *ResultStore) Results(sessionID string) (domain.GameResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[sessionID]
	return result, ok
}

// LatestByPIN finds the most recent stored game played under pin.
func (s *ResultStore) LatestByPIN(_ context.Context, pin string) (domain.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		found  domain.GameResult
		exists bool
	)
	for _, result := range s.results {
		if result.PIN == pin && (!exists || result.FinishedAt.After(found.FinishedAt)) {
			found, exists = result, true
		}
	}
	if !exists {
		return domain.GameResult{}, domain.ErrResultsNotFound
	}
	return found, nil
}
