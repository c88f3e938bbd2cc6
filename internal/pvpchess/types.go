package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/session"
)

var errSeedExists = errors.New("match seed already exists")

// ErrPlyConflict means a store already holds a different move at the same
// ply index, so the in-memory match has diverged from stored history.
var ErrPlyConflict = errors.New("ply conflicts with stored history")

// samePly accepts a replay of the stored move and rejects anything else.
func samePly(stored, tr match.TransitionResult) error {
	if stored.UCI != tr.UCI {
		return fmt.Errorf("%w: %s ply %d holds %s, got %s", ErrPlyConflict, tr.MatchID, tr.Ply, stored.UCI, tr.UCI)
	}
	return nil
}

// EventType names a broadcast event.
type EventType string

const (
	EventMove       EventType = "move"
	EventResign     EventType = "resign"
	EventTimeout    EventType = "timeout"
	EventDrawOffer  EventType = "draw_offer"
	EventDrawAccept EventType = "draw_accept"
	EventStatus     EventType = "status"
)

// Event is what spectators receive. Exactly one of Move or Outcome is set,
// except for draw offers which carry neither.
type Event struct {
	Type      EventType               `json:"type"`
	MatchID   string                  `json:"match_id"`
	Side      chess.Color             `json:"side"`
	Move      *match.TransitionResult `json:"move,omitempty"`
	Outcome   *match.Outcome          `json:"outcome,omitempty"`
	Summary   string                  `json:"summary,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// HistorySink persists applied plies. Append is called once per ply and is
// never retried by the manager. Replaying a stored ply is a no-op; a
// different move at a stored index returns ErrPlyConflict.
type HistorySink interface {
	Append(ctx context.Context, tr match.TransitionResult) error
}

// ResultSink persists the final record of a concluded match.
type ResultSink interface {
	SaveResult(ctx context.Context, r domain.MatchResult) error
}

type Broadcaster interface {
	Publish(ctx context.Context, ev Event) error
}

// HistoryReader lists persisted plies of a match ordered by ply.
type HistoryReader interface {
	History(ctx context.Context, matchID string) ([]match.TransitionResult, error)
}

// SeedStore keeps the creation record of each match.
type SeedStore interface {
	SaveSeed(ctx context.Context, seed domain.MatchSeed) error
	LoadSeed(ctx context.Context, matchID string) (domain.MatchSeed, error)
}

// Store is a complete state backend: it seeds, loads and records matches.
type Store interface {
	session.StateLoader
	SeedStore
	HistorySink
	ResultSink
	HistoryReader
	Close() error
}
