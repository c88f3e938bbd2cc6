package match

import (
	"fmt"
	"time"

	"github.com/park285/Cheese-match-server/internal/chess"
)

// Game is the state machine for one match: board, ply log, status and a
// transient draw offer. It is not safe for concurrent use; callers serialize
// access through session.Coordinator.
type Game struct {
	id          string
	start       chess.Board
	board       chess.Board
	plies       []Ply
	status      Status
	termination Termination
	result      Result
	concludedBy chess.Color

	offerBy  chess.Color
	hasOffer bool

	seen map[string]int
	now  func() time.Time
}

type Option func(*Game)

// WithClock overrides the timestamp source used for plies and outcomes.
func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		if now != nil {
			g.now = now
		}
	}
}

// New starts a match from the given position. A start position that is
// already mate, stalemate or a dead draw is concluded immediately.
func New(id string, start chess.Board, opts ...Option) *Game {
	g := &Game{
		id:    id,
		start: start,
		board: start,
		seen:  make(map[string]int),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.seen[chess.PositionKey(start)] = 1
	g.status, g.termination, g.result = evaluate(start, 1)
	return g
}

// Restore rebuilds a match by replaying its recorded moves. Every ply is
// validated again; a log that does not replay is rejected.
func Restore(rec Record, opts ...Option) (*Game, error) {
	start := chess.StartingBoard()
	if rec.StartFEN != "" {
		b, err := chess.ParsePosition(rec.StartFEN)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", rec.ID, err)
		}
		start = b
	}
	g := New(rec.ID, start, opts...)
	for i, p := range rec.Plies {
		m, err := chess.ParseUCI(g.board, p.UCI)
		if err != nil {
			return nil, fmt.Errorf("restore %s ply %d: %w", rec.ID, i, err)
		}
		at := p.CreatedAt
		if at.IsZero() {
			at = g.now().UTC()
		}
		if _, err := g.apply(g.board.Turn, m, at); err != nil {
			return nil, fmt.Errorf("restore %s ply %d: %w", rec.ID, i, err)
		}
	}
	if rec.Status.Terminal() && !g.status.Terminal() {
		g.conclude(rec.Status, rec.Termination, rec.Result, rec.ConcludedBy)
	}
	return g, nil
}

func (g *Game) ID() string { return g.id }
func (g *Game) Board() chess.Board { return g.board }
func (g *Game) Turn() chess.Color { return g.board.Turn }
func (g *Game) Status() Status { return g.status }
func (g *Game) StartFEN() string { return chess.SerializePosition(g.start) }
func (g *Game) PlyCount() int { return len(g.plies) }
func (g *Game) LegalMoves() []chess.Move {
	if g.status.Terminal() {
		return nil
	}
	return chess.LegalMoves(g.board)
}

// Plies returns a copy of the ply log.
func (g *Game) Plies() []Ply {
	out := make([]Ply, len(g.plies))
	copy(out, g.plies)
	return out
}

// DrawOffer reports the side with an outstanding draw offer.
func (g *Game) DrawOffer() (chess.Color, bool) { return g.offerBy, g.hasOffer }

// SubmitMove validates m against the current legal set and applies it. On any
// error the game is left exactly as it was.
func (g *Game) SubmitMove(side chess.Color, m chess.Move) (TransitionResult, error) {
	return g.apply(side, m, g.now().UTC())
}

func (g *Game) apply(side chess.Color, m chess.Move, at time.Time) (TransitionResult, error) {
	if g.status.Terminal() {
		return TransitionResult{}, ErrMatchAlreadyConcluded
	}
	if side != g.board.Turn {
		return TransitionResult{}, ErrNotYourTurn
	}

	before := g.board
	legal := chess.LegalMoves(before)
	if !containsMove(legal, m) {
		return TransitionResult{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}

	next := chess.Apply(before, m)
	key := chess.PositionKey(next)
	reps := g.seen[key] + 1
	status, termination, result := evaluate(next, reps)
	ply := Ply{
		Index:      len(g.plies),
		MoveNumber: before.FullMove,
		Side:       side,
		Move:       m,
		SAN:        chess.EncodeSAN(before, m, legal),
		UCI:        m.UCI(),
		FENBefore:  chess.SerializePosition(before),
		FENAfter:   chess.SerializePosition(next),
		CreatedAt:  at,
	}

	g.board = next
	g.seen[key] = reps
	g.plies = append(g.plies, ply)
	g.status, g.termination, g.result = status, termination, result
	if status.Terminal() {
		g.concludedBy = side
		g.hasOffer = false
	} else if g.hasOffer && g.offerBy != side {
		// moving instead of accepting declines the offer
		g.hasOffer = false
	}

	return TransitionResult{
		MatchID:     g.id,
		Ply:         ply.Index,
		MoveNumber:  ply.MoveNumber,
		Side:        side,
		SAN:         ply.SAN,
		UCI:         ply.UCI,
		FENBefore:   ply.FENBefore,
		FENAfter:    ply.FENAfter,
		Status:      g.status,
		Termination: g.termination,
		Result:      g.result,
		CreatedAt:   at,
	}, nil
}

// Resign concludes the match in the opponent's favor regardless of position.
func (g *Game) Resign(side chess.Color) (Outcome, error) {
	return g.concede(side, TerminationResignation)
}

// Forfeit is the time-control hook: an external clock calls it when side
// runs out of time. It is resignation-equivalent.
func (g *Game) Forfeit(side chess.Color) (Outcome, error) {
	return g.concede(side, TerminationTimeout)
}

func (g *Game) concede(side chess.Color, termination Termination) (Outcome, error) {
	if g.status.Terminal() {
		return Outcome{}, ErrMatchAlreadyConcluded
	}
	g.conclude(StatusResigned, termination, winFor(side.Other()), side)
	return g.outcome(side), nil
}

// OfferDraw records a transient offer from side, replacing any earlier one.
func (g *Game) OfferDraw(side chess.Color) error {
	if g.status.Terminal() {
		return ErrMatchAlreadyConcluded
	}
	g.offerBy, g.hasOffer = side, true
	return nil
}

// AcceptDraw concludes the match only when the other side has an offer outstanding.
func (g *Game) AcceptDraw(side chess.Color) (Outcome, error) {
	if g.status.Terminal() {
		return Outcome{}, ErrMatchAlreadyConcluded
	}
	if !g.hasOffer || g.offerBy == side {
		return Outcome{}, ErrNoDrawOffered
	}
	g.conclude(StatusDrawAgreed, TerminationAgreement, ResultDraw, side)
	return g.outcome(side), nil
}

func (g *Game) conclude(status Status, termination Termination, result Result, by chess.Color) {
	g.status, g.termination, g.result = status, termination, result
	g.concludedBy = by
	g.hasOffer = false
}

func (g *Game) outcome(side chess.Color) Outcome {
	return Outcome{
		MatchID:     g.id,
		Side:        side,
		Status:      g.status,
		Termination: g.termination,
		Result:      g.result,
		FEN:         chess.SerializePosition(g.board),
		Plies:       len(g.plies),
		At:          g.now().UTC(),
	}
}

// Snapshot never mutates the game.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		MatchID:     g.id,
		FEN:         chess.SerializePosition(g.board),
		Status:      g.status,
		Termination: g.termination,
		Result:      g.result,
		Plies:       len(g.plies),
		Turn:        g.board.Turn,
		InCheck:     chess.InCheck(g.board),
	}
	if g.hasOffer {
		by := g.offerBy
		s.DrawOfferedBy = &by
	}
	if n := len(g.plies); n > 0 {
		s.LastMove = g.plies[n-1].SAN
	}
	return s
}

// Record returns the persistable form of the match.
func (g *Game) Record() Record {
	return Record{
		ID:          g.id,
		StartFEN:    chess.SerializePosition(g.start),
		Plies:       g.Plies(),
		Status:      g.status,
		Termination: g.termination,
		Result:      g.result,
		ConcludedBy: g.concludedBy,
	}
}

func evaluate(b chess.Board, reps int) (Status, Termination, Result) {
	if !chess.HasLegalMoves(b) {
		if chess.InCheck(b) {
			return StatusCheckmate, TerminationCheckmate, winFor(b.Turn.Other())
		}
		return StatusStalemate, TerminationStalemate, ResultDraw
	}
	switch {
	case chess.InsufficientMaterial(b):
		return StatusDrawByRule, TerminationInsufficientMaterial, ResultDraw
	case b.HalfMove >= chess.FiftyMoveLimit:
		return StatusDrawByRule, TerminationFiftyMove, ResultDraw
	case reps >= 3:
		return StatusDrawByRule, TerminationThreefoldRepetition, ResultDraw
	}
	return StatusInProgress, TerminationNone, ResultOngoing
}

func containsMove(moves []chess.Move, m chess.Move) bool {
	for _, c := range moves {
		if c == m {
			return true
		}
	}
	return false
}
