package match

import (
	"errors"
	"fmt"
	"time"

	"github.com/park285/Cheese-match-server/internal/chess"
)

var (
	ErrIllegalMove           = chess.ErrIllegalMove
	ErrNotYourTurn           = fmt.Errorf("%w: not your turn", chess.ErrIllegalMove)
	ErrMatchAlreadyConcluded = errors.New("match already concluded")
	ErrNoDrawOffered         = errors.New("no draw offered")
)

// Status is the match lifecycle state. Every value except StatusInProgress is terminal.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCheckmate  Status = "CHECKMATE"
	StatusStalemate  Status = "STALEMATE"
	StatusDrawAgreed Status = "DRAW_AGREED"
	StatusDrawByRule Status = "DRAW_BY_RULE"
	StatusResigned   Status = "RESIGNED"
)

func (s Status) Terminal() bool { return s != StatusInProgress && s != "" }

// Termination explains how a concluded match ended.
type Termination string

const (
	TerminationNone                 Termination = ""
	TerminationCheckmate            Termination = "checkmate"
	TerminationStalemate            Termination = "stalemate"
	TerminationFiftyMove            Termination = "fifty_move"
	TerminationThreefoldRepetition  Termination = "threefold_repetition"
	TerminationInsufficientMaterial Termination = "insufficient_material"
	TerminationAgreement            Termination = "agreement"
	TerminationResignation          Termination = "resignation"
	TerminationTimeout              Termination = "timeout"
)

// Result is the PGN game result token.
type Result string

const (
	ResultOngoing  Result = "*"
	ResultWhiteWon Result = "1-0"
	ResultBlackWon Result = "0-1"
	ResultDraw     Result = "1/2-1/2"
)

func winFor(c chess.Color) Result {
	if c == chess.White {
		return ResultWhiteWon
	}
	return ResultBlackWon
}

// Ply is one applied move. Plies are appended by Game and never changed.
type Ply struct {
	Index      int         `json:"ply"`
	MoveNumber int         `json:"move_number"`
	Side       chess.Color `json:"side"`
	Move       chess.Move  `json:"-"`
	SAN        string      `json:"san"`
	UCI        string      `json:"uci"`
	FENBefore  string      `json:"fen_before"`
	FENAfter   string      `json:"fen_after"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TransitionResult is what history stores persist and broadcasters relay
// after a move has been applied.
type TransitionResult struct {
	MatchID     string      `json:"match_id"`
	Ply         int         `json:"ply"`
	MoveNumber  int         `json:"move_number"`
	Side        chess.Color `json:"side"`
	SAN         string      `json:"san"`
	UCI         string      `json:"uci"`
	FENBefore   string      `json:"fen_before"`
	FENAfter    string      `json:"fen_after"`
	Status      Status      `json:"status"`
	Termination Termination `json:"termination,omitempty"`
	Result      Result      `json:"result"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Outcome reports an out-of-band event: resignation, timeout or agreed draw.
type Outcome struct {
	MatchID     string      `json:"match_id"`
	Side        chess.Color `json:"side"`
	Status      Status      `json:"status"`
	Termination Termination `json:"termination"`
	Result      Result      `json:"result"`
	FEN         string      `json:"fen"`
	Plies       int         `json:"plies"`
	At          time.Time   `json:"at"`
}

// Snapshot is a read-only projection taken under the match lock.
type Snapshot struct {
	MatchID       string       `json:"match_id"`
	FEN           string       `json:"fen"`
	Status        Status       `json:"status"`
	Termination   Termination  `json:"termination,omitempty"`
	Result        Result       `json:"result"`
	Plies         int          `json:"plies"`
	Turn          chess.Color  `json:"turn"`
	InCheck       bool         `json:"in_check"`
	DrawOfferedBy *chess.Color `json:"draw_offered_by,omitempty"`
	LastMove      string       `json:"last_move,omitempty"`
}

// Record is the persisted form of a match: start position, ply log and, for
// matches ended out of band, the conclusion. Draw offers are not recorded.
type Record struct {
	ID          string      `json:"id"`
	StartFEN    string      `json:"start_fen"`
	Plies       []Ply       `json:"plies"`
	Status      Status      `json:"status"`
	Termination Termination `json:"termination,omitempty"`
	Result      Result      `json:"result"`
	ConcludedBy chess.Color `json:"concluded_by"`
}
