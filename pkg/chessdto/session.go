package chessdto

import "time"

// MatchDetails is the game details view: the live snapshot plus seed data
// and the opening label for the moves played so far.
type MatchDetails struct {
	MatchID       string    `json:"matchId"`
	WhiteID       string    `json:"whiteId"`
	BlackID       string    `json:"blackId"`
	StartFEN      string    `json:"startFen"`
	FEN           string    `json:"fen"`
	Status        string    `json:"status"`
	Termination   string    `json:"termination,omitempty"`
	Result        string    `json:"result"`
	Turn          string    `json:"turn"`
	InCheck       bool      `json:"inCheck"`
	Plies         int       `json:"plies"`
	LastMove      string    `json:"lastMove,omitempty"`
	DrawOfferedBy string    `json:"drawOfferedBy,omitempty"`
	MovesUCI      []string  `json:"movesUci"`
	MovesSAN      []string  `json:"movesSan"`
	OpeningCode   string    `json:"openingCode,omitempty"`
	OpeningName   string    `json:"openingName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
