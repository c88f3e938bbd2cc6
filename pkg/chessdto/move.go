package chessdto

// LegalMove is a client hint for one legal move in the current position.
type LegalMove struct {
	UCI string `json:"uci"`
	SAN string `json:"san"`
}

type LegalMovesResponse struct {
	MatchID string      `json:"matchId"`
	Turn    string      `json:"turn"`
	Moves   []LegalMove `json:"moves"`
}
