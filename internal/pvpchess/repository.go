package pvpchess

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/session"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS match_moves (
    match_id    TEXT        NOT NULL,
    ply         INTEGER     NOT NULL,
    move_number INTEGER     NOT NULL,
    color       TEXT        NOT NULL,
    san         TEXT        NOT NULL,
    uci         TEXT        NOT NULL,
    fen_before  TEXT        NOT NULL,
    fen_after   TEXT        NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (match_id, ply)
);
CREATE TABLE IF NOT EXISTS match_results (
    match_id     TEXT PRIMARY KEY,
    white_id     TEXT        NOT NULL,
    black_id     TEXT        NOT NULL,
    start_fen    TEXT        NOT NULL,
    status       TEXT        NOT NULL,
    termination  TEXT        NOT NULL,
    result       TEXT        NOT NULL,
    concluded_by TEXT        NOT NULL,
    final_fen    TEXT        NOT NULL,
    moves_uci    JSONB       NOT NULL,
    moves_san    JSONB       NOT NULL,
    pgn          TEXT        NOT NULL,
    started_at   TIMESTAMPTZ,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT      NOT NULL
);`

// Repository is the durable archive in Postgres. It records every ply in
// match_moves and one row per concluded match in match_results.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// EnsureSchema creates the archive tables if they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return err
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Append inserts the ply. A replayed ply is ignored when it carries the
// stored move and reported as ErrPlyConflict otherwise.
func (r *Repository) Append(ctx context.Context, tr match.TransitionResult) error {
	const q = `INSERT INTO match_moves (
        match_id, ply, move_number, color, san, uci, fen_before, fen_after, created_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
      ON CONFLICT (match_id, ply) DO NOTHING`
	res, err := r.db.ExecContext(ctx, q,
		tr.MatchID, tr.Ply, tr.MoveNumber, tr.Side.String(),
		tr.SAN, tr.UCI, tr.FENBefore, tr.FENAfter, tr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ply %s/%d: %w", tr.MatchID, tr.Ply, err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var stored match.TransitionResult
	err = r.db.QueryRowContext(ctx,
		`SELECT uci FROM match_moves WHERE match_id=$1 AND ply=$2`, tr.MatchID, tr.Ply,
	).Scan(&stored.UCI)
	if err != nil {
		return fmt.Errorf("read ply %s/%d: %w", tr.MatchID, tr.Ply, err)
	}
	return samePly(stored, tr)
}

// SaveResult upserts the final record of a concluded match.
func (r *Repository) SaveResult(ctx context.Context, res domain.MatchResult) error {
	movesUCIRaw, _ := json.Marshal(nonNil(res.MovesUCI))
	movesSANRaw, _ := json.Marshal(nonNil(res.MovesSAN))
	pgn := res.PGN
	if strings.TrimSpace(pgn) == "" {
		pgn = buildPGN(res)
	}
	var started any
	if !res.StartedAt.IsZero() {
		started = res.StartedAt
	}

	const q = `INSERT INTO match_results (
        match_id, white_id, black_id, start_fen,
        status, termination, result, concluded_by, final_fen,
        moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
      ) ON CONFLICT (match_id) DO UPDATE SET
        white_id=EXCLUDED.white_id,
        black_id=EXCLUDED.black_id,
        start_fen=EXCLUDED.start_fen,
        status=EXCLUDED.status,
        termination=EXCLUDED.termination,
        result=EXCLUDED.result,
        concluded_by=EXCLUDED.concluded_by,
        final_fen=EXCLUDED.final_fen,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		res.MatchID, res.WhiteID, res.BlackID, res.StartFEN,
		res.Status, res.Termination, res.Result, res.ConcludedBy.String(), res.FinalFEN,
		string(movesUCIRaw), string(movesSANRaw), pgn,
		started, res.EndedAt, res.Duration.Milliseconds(),
	)
	return err
}

// History returns the archived plies of a match ordered by ply.
func (r *Repository) History(ctx context.Context, matchID string) ([]match.TransitionResult, error) {
	const q = `SELECT ply, move_number, color, san, uci, fen_before, fen_after, created_at
      FROM match_moves WHERE match_id = $1 ORDER BY ply`
	rows, err := r.db.QueryContext(ctx, q, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []match.TransitionResult
	for rows.Next() {
		tr := match.TransitionResult{MatchID: matchID}
		var color string
		if err := rows.Scan(&tr.Ply, &tr.MoveNumber, &color, &tr.SAN, &tr.UCI, &tr.FENBefore, &tr.FENAfter, &tr.CreatedAt); err != nil {
			return nil, err
		}
		if tr.Side, err = chess.ParseColor(color); err != nil {
			return nil, fmt.Errorf("ply %d of %s: %w", tr.Ply, matchID, err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrMatchNotFound, matchID)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
