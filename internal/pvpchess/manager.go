package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/chess/openingbook"
	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/msgcat"
	"github.com/park285/Cheese-match-server/internal/session"
	"github.com/park285/Cheese-match-server/pkg/chessdto"
)

// Manager is the inbound surface for live matches. Every mutation runs
// inside the coordinator's per-match lock; persistence and broadcast run
// after the lock is released.
type Manager struct {
	coord   *session.Coordinator
	seeds   SeedStore
	sinks   *MultiSink
	archive HistoryReader
	bcast   Broadcaster
	catalog *msgcat.Catalog
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithHistorySinks adds sinks that receive every applied ply.
func WithHistorySinks(sinks ...HistorySink) Option {
	return func(m *Manager) {
		for _, s := range sinks {
			m.sinks.AddHistory(s)
		}
	}
}

// WithResultSinks adds sinks that receive the record of each concluded match.
func WithResultSinks(sinks ...ResultSink) Option {
	return func(m *Manager) {
		for _, s := range sinks {
			m.sinks.AddResults(s)
		}
	}
}

func WithBroadcaster(b Broadcaster) Option {
	return func(m *Manager) { m.bcast = b }
}

// WithArchive sets where History looks for matches the coordinator cannot load.
func WithArchive(r HistoryReader) Option {
	return func(m *Manager) { m.archive = r }
}

func WithCatalog(c *msgcat.Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithIDGenerator(f func() string) Option {
	return func(m *Manager) {
		if f != nil {
			m.newID = f
		}
	}
}

func NewManager(coord *session.Coordinator, seeds SeedStore, opts ...Option) *Manager {
	m := &Manager{
		coord:  coord,
		seeds:  seeds,
		sinks:  NewMultiSink(),
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateMatchParams describes a new match. An empty StartFEN means the
// standard starting position.
type CreateMatchParams struct {
	WhiteID  string
	BlackID  string
	StartFEN string
}

// CreateMatch stores the seed and registers the match with the coordinator.
func (m *Manager) CreateMatch(ctx context.Context, p CreateMatchParams) (domain.MatchSeed, match.Snapshot, error) {
	start := chess.StartingBoard()
	if fen := strings.TrimSpace(p.StartFEN); fen != "" {
		b, err := chess.ParsePosition(fen)
		if err != nil {
			return domain.MatchSeed{}, match.Snapshot{}, err
		}
		start = b
	}
	seed := domain.MatchSeed{
		ID:        m.newID(),
		WhiteID:   strings.TrimSpace(p.WhiteID),
		BlackID:   strings.TrimSpace(p.BlackID),
		StartFEN:  chess.SerializePosition(start),
		CreatedAt: m.now().UTC(),
	}
	if err := m.seeds.SaveSeed(ctx, seed); err != nil {
		return domain.MatchSeed{}, match.Snapshot{}, fmt.Errorf("create match: %w", err)
	}
	g := match.New(seed.ID, start, match.WithClock(m.now))
	if err := m.coord.Register(g); err != nil {
		return domain.MatchSeed{}, match.Snapshot{}, fmt.Errorf("create match: %w", err)
	}
	snap := g.Snapshot()
	m.logger.Info("match_create",
		zap.String("match_id", seed.ID),
		zap.String("white_id", seed.WhiteID),
		zap.String("black_id", seed.BlackID),
		zap.String("status", string(snap.Status)),
	)
	if snap.Status.Terminal() {
		// the start position was already decided
		m.finish(context.WithoutCancel(ctx), final{rec: g.Record(), fen: snap.FEN})
	}
	return seed, snap, nil
}

type final struct {
	rec match.Record
	fen string
}

func captureFinal(g *match.Game) *final {
	return &final{rec: g.Record(), fen: chess.SerializePosition(g.Board())}
}

// SubmitMove applies a move given in UCI, or SAN as a fallback, for side.
func (m *Manager) SubmitMove(ctx context.Context, matchID string, side chess.Color, move string) (match.TransitionResult, error) {
	var (
		tr  match.TransitionResult
		fin *final
	)
	err := m.coord.WithMatch(ctx, matchID, func(g *match.Game) error {
		if g.Status().Terminal() {
			return match.ErrMatchAlreadyConcluded
		}
		if g.Turn() != side {
			return match.ErrNotYourTurn
		}
		mv, err := chess.ParseMove(g.Board(), move)
		if err != nil {
			return err
		}
		if tr, err = g.SubmitMove(side, mv); err != nil {
			return err
		}
		if tr.Status.Terminal() {
			fin = captureFinal(g)
		}
		return nil
	})
	if err != nil {
		m.logger.Debug("match_move_rejected",
			zap.String("match_id", matchID),
			zap.String("side", side.String()),
			zap.String("move", move),
			zap.Error(err),
		)
		return match.TransitionResult{}, err
	}

	m.logger.Info("match_move",
		zap.String("match_id", matchID),
		zap.String("side", side.String()),
		zap.String("uci", tr.UCI),
		zap.String("san", tr.SAN),
		zap.Int("ply", tr.Ply),
		zap.String("status", string(tr.Status)),
	)
	bg := context.WithoutCancel(ctx)
	if err := m.sinks.Append(bg, tr); err != nil {
		if errors.Is(err, ErrPlyConflict) {
			// stored history moved on without us; drop the stale copy so the
			// next access reloads it
			m.logger.Error("match_ply_conflict", zap.String("match_id", matchID), zap.Int("ply", tr.Ply), zap.Error(err))
			m.coord.Evict(matchID)
			return match.TransitionResult{}, err
		}
		m.logger.Error("match_sink_error", zap.String("match_id", matchID), zap.Int("ply", tr.Ply), zap.Error(err))
	}
	m.publish(bg, Event{
		Type:      EventMove,
		MatchID:   matchID,
		Side:      side,
		Move:      &tr,
		Summary:   m.moveSummary(tr),
		Timestamp: tr.CreatedAt,
	})
	if fin != nil {
		m.finish(bg, *fin)
	}
	return tr, nil
}

// Resign concludes the match in the opponent's favor.
func (m *Manager) Resign(ctx context.Context, matchID string, side chess.Color) (match.Outcome, error) {
	return m.conclude(ctx, matchID, side, EventResign, func(g *match.Game) (match.Outcome, error) {
		return g.Resign(side)
	})
}

// Timeout is the hook for an external clock: side has run out of time.
func (m *Manager) Timeout(ctx context.Context, matchID string, side chess.Color) (match.Outcome, error) {
	return m.conclude(ctx, matchID, side, EventTimeout, func(g *match.Game) (match.Outcome, error) {
		return g.Forfeit(side)
	})
}

func (m *Manager) AcceptDraw(ctx context.Context, matchID string, side chess.Color) (match.Outcome, error) {
	return m.conclude(ctx, matchID, side, EventDrawAccept, func(g *match.Game) (match.Outcome, error) {
		return g.AcceptDraw(side)
	})
}

func (m *Manager) conclude(ctx context.Context, matchID string, side chess.Color, typ EventType, fn func(*match.Game) (match.Outcome, error)) (match.Outcome, error) {
	var (
		out match.Outcome
		fin *final
	)
	err := m.coord.WithMatch(ctx, matchID, func(g *match.Game) error {
		var err error
		if out, err = fn(g); err != nil {
			return err
		}
		fin = captureFinal(g)
		return nil
	})
	if err != nil {
		return match.Outcome{}, err
	}
	m.logger.Info("match_"+string(typ),
		zap.String("match_id", matchID),
		zap.String("side", side.String()),
		zap.String("result", string(out.Result)),
	)
	bg := context.WithoutCancel(ctx)
	m.publish(bg, Event{
		Type:      typ,
		MatchID:   matchID,
		Side:      side,
		Outcome:   &out,
		Summary:   m.summary("events."+string(typ), side, out.Result),
		Timestamp: out.At,
	})
	m.finish(bg, *fin)
	return out, nil
}

// OfferDraw records a draw offer from side and announces it.
func (m *Manager) OfferDraw(ctx context.Context, matchID string, side chess.Color) error {
	err := m.coord.WithMatch(ctx, matchID, func(g *match.Game) error {
		return g.OfferDraw(side)
	})
	if err != nil {
		return err
	}
	m.logger.Info("match_draw_offer", zap.String("match_id", matchID), zap.String("side", side.String()))
	m.publish(context.WithoutCancel(ctx), Event{
		Type:      EventDrawOffer,
		MatchID:   matchID,
		Side:      side,
		Summary:   m.summary("events.draw_offer", side, ""),
		Timestamp: m.now().UTC(),
	})
	return nil
}

func (m *Manager) Snapshot(ctx context.Context, matchID string) (match.Snapshot, error) {
	return m.coord.Snapshot(ctx, matchID)
}

// Details returns the snapshot enriched with seed data, the move lists and
// the ECO opening label.
func (m *Manager) Details(ctx context.Context, matchID string) (chessdto.MatchDetails, error) {
	var (
		snap match.Snapshot
		rec  match.Record
	)
	err := m.coord.WithMatch(ctx, matchID, func(g *match.Game) error {
		snap, rec = g.Snapshot(), g.Record()
		return nil
	})
	if err != nil {
		return chessdto.MatchDetails{}, err
	}

	d := chessdto.MatchDetails{
		MatchID:     snap.MatchID,
		StartFEN:    rec.StartFEN,
		FEN:         snap.FEN,
		Status:      string(snap.Status),
		Termination: string(snap.Termination),
		Result:      string(snap.Result),
		Turn:        snap.Turn.String(),
		InCheck:     snap.InCheck,
		Plies:       snap.Plies,
		LastMove:    snap.LastMove,
		MovesUCI:    make([]string, 0, len(rec.Plies)),
		MovesSAN:    make([]string, 0, len(rec.Plies)),
	}
	if snap.DrawOfferedBy != nil {
		d.DrawOfferedBy = snap.DrawOfferedBy.String()
	}
	for _, p := range rec.Plies {
		d.MovesUCI = append(d.MovesUCI, p.UCI)
		d.MovesSAN = append(d.MovesSAN, p.SAN)
	}
	if seed, err := m.seeds.LoadSeed(ctx, matchID); err == nil {
		d.WhiteID, d.BlackID, d.CreatedAt = seed.WhiteID, seed.BlackID, seed.CreatedAt
	} else {
		m.logger.Warn("match_seed_missing", zap.String("match_id", matchID), zap.Error(err))
	}
	if label := openingbook.Classify(rec.StartFEN, d.MovesUCI); !label.Empty() {
		d.OpeningCode, d.OpeningName = label.Code, label.Title
	}
	return d, nil
}

// LegalMoves lists the legal moves of the side to move with their SAN.
func (m *Manager) LegalMoves(ctx context.Context, matchID string) (chessdto.LegalMovesResponse, error) {
	var (
		board chess.Board
		legal []chess.Move
	)
	err := m.coord.WithMatch(ctx, matchID, func(g *match.Game) error {
		board, legal = g.Board(), g.LegalMoves()
		return nil
	})
	if err != nil {
		return chessdto.LegalMovesResponse{}, err
	}
	resp := chessdto.LegalMovesResponse{
		MatchID: matchID,
		Turn:    board.Turn.String(),
		Moves:   make([]chessdto.LegalMove, 0, len(legal)),
	}
	for _, mv := range legal {
		resp.Moves = append(resp.Moves, chessdto.LegalMove{UCI: mv.UCI(), SAN: chess.EncodeSAN(board, mv, legal)})
	}
	return resp, nil
}

// History lists the plies of a match in order. Matches the coordinator can
// no longer load are read from the archive.
func (m *Manager) History(ctx context.Context, matchID string) ([]chessdto.MoveHistory, error) {
	var plies []match.Ply
	err := m.coord.WithMatch(ctx, matchID, func(g *match.Game) error {
		plies = g.Plies()
		return nil
	})
	if err == nil {
		out := make([]chessdto.MoveHistory, 0, len(plies))
		for _, p := range plies {
			out = append(out, chessdto.MoveHistory{
				Ply:        p.Index,
				MoveNumber: p.MoveNumber,
				Color:      p.Side.String(),
				SAN:        p.SAN,
				UCI:        p.UCI,
				FENBefore:  p.FENBefore,
				FENAfter:   p.FENAfter,
				CreatedAt:  p.CreatedAt,
			})
		}
		return out, nil
	}
	if !errors.Is(err, session.ErrMatchNotFound) || m.archive == nil {
		return nil, err
	}

	archived, aerr := m.archive.History(ctx, matchID)
	if aerr != nil {
		return nil, aerr
	}
	out := make([]chessdto.MoveHistory, 0, len(archived))
	for _, tr := range archived {
		out = append(out, chessdto.MoveHistory{
			Ply:        tr.Ply,
			MoveNumber: tr.MoveNumber,
			Color:      tr.Side.String(),
			SAN:        tr.SAN,
			UCI:        tr.UCI,
			FENBefore:  tr.FENBefore,
			FENAfter:   tr.FENAfter,
			CreatedAt:  tr.CreatedAt,
		})
	}
	return out, nil
}

// PGN exports the match so far; an unfinished match ends in "*".
func (m *Manager) PGN(ctx context.Context, matchID string) (string, error) {
	var fin *final
	err := m.coord.WithMatch(ctx, matchID, func(g *match.Game) error {
		fin = captureFinal(g)
		return nil
	})
	if err != nil {
		return "", err
	}
	seed, err := m.seeds.LoadSeed(ctx, matchID)
	if err != nil {
		seed = domain.MatchSeed{ID: matchID}
	}
	return resultFromRecord(seed, fin.rec, fin.fen, m.now().UTC()).PGN, nil
}

// finish persists a concluded match and, once every result sink has
// accepted it, drops it from the coordinator.
func (m *Manager) finish(ctx context.Context, f final) {
	id := f.rec.ID
	seed, err := m.seeds.LoadSeed(ctx, id)
	if err != nil {
		m.logger.Warn("match_seed_missing", zap.String("match_id", id), zap.Error(err))
		seed = domain.MatchSeed{ID: id, StartFEN: f.rec.StartFEN}
	}
	res := resultFromRecord(seed, f.rec, f.fen, m.now().UTC())

	if f.rec.Termination != match.TerminationResignation &&
		f.rec.Termination != match.TerminationTimeout &&
		f.rec.Termination != match.TerminationAgreement {
		m.publish(ctx, Event{
			Type:      EventStatus,
			MatchID:   id,
			Side:      f.rec.ConcludedBy,
			Summary:   m.summary("events.status."+string(f.rec.Termination), f.rec.ConcludedBy, f.rec.Result),
			Timestamp: res.EndedAt,
		})
	}

	if err := m.sinks.SaveResult(ctx, res); err != nil {
		m.logger.Error("match_result_persist_error",
			zap.String("match_id", id),
			zap.String("result", res.Result),
			zap.Error(err),
		)
		return
	}
	m.logger.Info("match_result_persist",
		zap.String("match_id", id),
		zap.String("result", res.Result),
		zap.String("termination", res.Termination),
		zap.Int("plies", len(res.MovesUCI)),
	)
	if m.coord.Evict(id) {
		m.logger.Debug("match_evict", zap.String("match_id", id))
	}
}

func (m *Manager) publish(ctx context.Context, ev Event) {
	if m.bcast == nil {
		return
	}
	if err := m.bcast.Publish(ctx, ev); err != nil {
		m.logger.Warn("match_broadcast_error",
			zap.String("match_id", ev.MatchID),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
	}
}

func (m *Manager) moveSummary(tr match.TransitionResult) string {
	key := "events.move"
	if strings.HasSuffix(tr.SAN, "+") {
		key = "events.check"
	}
	data := map[string]any{"Side": sideName(tr.Side), "SAN": tr.SAN}
	return m.catalog.RenderOr(key, data, fmt.Sprintf("%s %s", sideName(tr.Side), tr.SAN))
}

func (m *Manager) summary(key string, side chess.Color, result match.Result) string {
	data := map[string]any{"Side": sideName(side), "Result": string(result)}
	return m.catalog.RenderOr(key, data, strings.TrimSpace(sideName(side)+" "+string(result)))
}

func sideName(c chess.Color) string {
	if c == chess.Black {
		return "Black"
	}
	return "White"
}
