package pvpchess

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/session"
)

// MemoryStore is the in-process Store used when no external backend is
// configured. State does not survive a restart.
type MemoryStore struct {
	mu sync.RWMutex

	seeds   map[string]domain.MatchSeed
	plies   map[string]map[int]match.TransitionResult
	results map[string]domain.MatchResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seeds:   make(map[string]domain.MatchSeed),
		plies:   make(map[string]map[int]match.TransitionResult),
		results: make(map[string]domain.MatchResult),
	}
}

func (s *MemoryStore) SaveSeed(ctx context.Context, seed domain.MatchSeed) error {
	id := strings.TrimSpace(seed.ID)
	if id == "" {
		return fmt.Errorf("save seed: empty match id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seeds[id]; exists {
		return fmt.Errorf("%w: %s", errSeedExists, id)
	}
	s.seeds[id] = seed
	return nil
}

func (s *MemoryStore) LoadSeed(ctx context.Context, matchID string) (domain.MatchSeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seed, ok := s.seeds[matchID]
	if !ok {
		return domain.MatchSeed{}, fmt.Errorf("%w: %s", session.ErrMatchNotFound, matchID)
	}
	return seed, nil
}

// Append is idempotent per ply index.
func (s *MemoryStore) Append(ctx context.Context, tr match.TransitionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPly, ok := s.plies[tr.MatchID]
	if !ok {
		byPly = make(map[int]match.TransitionResult)
		s.plies[tr.MatchID] = byPly
	}
	if stored, dup := byPly[tr.Ply]; dup {
		return samePly(stored, tr)
	}
	byPly[tr.Ply] = tr
	return nil
}

func (s *MemoryStore) History(ctx context.Context, matchID string) ([]match.TransitionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.seeds[matchID]; !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrMatchNotFound, matchID)
	}
	return s.historyLocked(matchID), nil
}

func (s *MemoryStore) historyLocked(matchID string) []match.TransitionResult {
	byPly := s.plies[matchID]
	items := make([]match.TransitionResult, 0, len(byPly))
	for _, tr := range byPly {
		items = append(items, tr)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Ply < items[j].Ply })
	return items
}

func (s *MemoryStore) SaveResult(ctx context.Context, r domain.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.MovesUCI = append([]string(nil), r.MovesUCI...)
	r.MovesSAN = append([]string(nil), r.MovesSAN...)
	s.results[r.MatchID] = r
	return nil
}

// Result returns the stored result of a concluded match.
func (s *MemoryStore) Result(matchID string) (domain.MatchResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[matchID]
	return r, ok
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*match.Game, error) {
	s.mu.RLock()
	seed, ok := s.seeds[id]
	plies := s.historyLocked(id)
	res, concluded := s.results[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrMatchNotFound, id)
	}
	if concluded {
		return restoreGame(seed, plies, &res)
	}
	return restoreGame(seed, plies, nil)
}

func (s *MemoryStore) Close() error { return nil }
