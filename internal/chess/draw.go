package chess

import "strings"

// FiftyMoveLimit is the halfmove clock value at which the fifty-move rule applies.
const FiftyMoveLimit = 100

// InsufficientMaterial reports dead positions: bare kings, a single minor
// piece, or any number of bishops that all stand on one square color.
func InsufficientMaterial(b Board) bool {
	minors := 0
	bishops, light := 0, 0
	for sq := Square(0); sq < 64; sq++ {
		switch b.Squares[sq].Kind() {
		case Pawn, Rook, Queen:
			return false
		case Knight:
			minors++
		case Bishop:
			minors++
			bishops++
			if sq.Light() {
				light++
			}
		}
	}
	if minors <= 1 {
		return true
	}
	return bishops == minors && (light == 0 || light == bishops)
}

// PositionKey identifies a position for repetition counting: placement, side
// to move, castling rights, and the en-passant square only when an en-passant
// capture is actually legal.
func PositionKey(b Board) string {
	fen := SerializePosition(b)
	fields := strings.Fields(fen)
	ep := "-"
	if b.EnPassant != NoSquare {
		for _, m := range LegalMoves(b) {
			if m.Kind == EnPassant {
				ep = b.EnPassant.String()
				break
			}
		}
	}
	return fields[0] + " " + fields[1] + " " + fields[2] + " " + ep
}
