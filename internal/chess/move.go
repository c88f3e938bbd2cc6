package chess

// MoveKind tags the special handling a move needs when applied.
type MoveKind uint8

const (
	Normal MoveKind = iota
	Capture
	CastleKingSide
	CastleQueenSide
	EnPassant
	Promotion
	PromotionCapture
)

var moveKindNames = [...]string{"normal", "capture", "castle_king_side", "castle_queen_side", "en_passant", "promotion", "promotion_capture"}

func (k MoveKind) String() string {
	if int(k) < len(moveKindNames) {
		return moveKindNames[k]
	}
	return "unknown"
}

// Move is an immutable value. Promotion is NoKind unless Kind is a promotion.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
	Kind      MoveKind
}

func (m Move) IsCapture() bool {
	return m.Kind == Capture || m.Kind == EnPassant || m.Kind == PromotionCapture
}

func (m Move) IsCastle() bool {
	return m.Kind == CastleKingSide || m.Kind == CastleQueenSide
}

// UCI renders coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoKind {
		s += string(m.Promotion.Letter() | 0x20)
	}
	return s
}

func (m Move) String() string { return m.UCI() }
