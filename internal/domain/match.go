package domain

import (
	"time"

	"github.com/park285/Cheese-match-server/internal/chess"
)

// MatchSeed is written once when a match is created.
type MatchSeed struct {
	ID        string    `json:"id"`
	WhiteID   string    `json:"white_id"`
	BlackID   string    `json:"black_id"`
	StartFEN  string    `json:"start_fen"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchResult is the durable record of a concluded match.
type MatchResult struct {
	MatchID     string        `json:"match_id"`
	WhiteID     string        `json:"white_id"`
	BlackID     string        `json:"black_id"`
	StartFEN    string        `json:"start_fen"`
	Status      string        `json:"status"`
	Termination string        `json:"termination"`
	Result      string        `json:"result"`
	ConcludedBy chess.Color   `json:"concluded_by"`
	FinalFEN    string        `json:"final_fen"`
	MovesUCI    []string      `json:"moves_uci"`
	MovesSAN    []string      `json:"moves_san"`
	PGN         string        `json:"pgn"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	Duration    time.Duration `json:"duration"`
}
