package chess

import "strings"

// CastlingRights holds one bit per remaining castling option.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

func (c CastlingRights) Has(r CastlingRights) bool { return c&r == r }

// String renders FEN castling field, "-" when empty.
func (c CastlingRights) String() string {
	if c == NoCastling {
		return "-"
	}
	var sb strings.Builder
	if c.Has(WhiteKingSide) {
		sb.WriteByte('K')
	}
	if c.Has(WhiteQueenSide) {
		sb.WriteByte('Q')
	}
	if c.Has(BlackKingSide) {
		sb.WriteByte('k')
	}
	if c.Has(BlackQueenSide) {
		sb.WriteByte('q')
	}
	return sb.String()
}

// Board is the full position. It is a plain value: assignment copies it and
// == compares every field, which the legality check and tests rely on.
type Board struct {
	Squares   [64]Piece
	Turn      Color
	Castling  CastlingRights
	EnPassant Square
	HalfMove  int
	FullMove  int
}

// StartingBoard returns the standard initial position.
func StartingBoard() Board {
	b, err := ParsePosition(StartFEN)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Board) At(s Square) Piece {
	if !s.Valid() {
		return NoPiece
	}
	return b.Squares[s]
}

// KingSquare returns the square of c's king, or NoSquare.
func (b *Board) KingSquare(c Color) Square {
	king := NewPiece(c, King)
	for sq := Square(0); sq < 64; sq++ {
		if b.Squares[sq] == king {
			return sq
		}
	}
	return NoSquare
}

func (b *Board) countKings(c Color) int {
	king := NewPiece(c, King)
	n := 0
	for _, p := range b.Squares {
		if p == king {
			n++
		}
	}
	return n
}
