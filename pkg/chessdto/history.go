package chessdto

import "time"

// MoveHistory is one ply as listed by the history endpoint.
type MoveHistory struct {
	Ply        int       `json:"ply"`
	MoveNumber int       `json:"moveNumber"`
	Color      string    `json:"color"`
	SAN        string    `json:"san"`
	UCI        string    `json:"uci"`
	FENBefore  string    `json:"fenBefore"`
	FENAfter   string    `json:"fenAfter"`
	CreatedAt  time.Time `json:"createdAt"`
}

type HistoryResponse struct {
	MatchID string        `json:"matchId"`
	Moves   []MoveHistory `json:"moves"`
}
