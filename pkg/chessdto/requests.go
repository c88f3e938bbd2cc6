package chessdto

type CreateMatchRequest struct {
	WhiteID  string `json:"whiteId"`
	BlackID  string `json:"blackId"`
	StartFEN string `json:"startFen,omitempty"`
}

type MoveRequest struct {
	Side string `json:"side"`
	Move string `json:"move"`
}

// SideRequest carries the acting side for resign, draw and timeout calls.
type SideRequest struct {
	Side string `json:"side"`
}
