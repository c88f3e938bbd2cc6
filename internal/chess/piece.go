package chess

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("invalid side %q", s)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// PieceKind is the piece type independent of color.
type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

const kindLetters = " PNBRQK"

// Letter is the uppercase SAN letter for the kind.
func (k PieceKind) Letter() byte {
	if k > King {
		return ' '
	}
	return kindLetters[k]
}

func kindFromLetter(ch byte) PieceKind {
	i := strings.IndexByte(kindLetters, ch&^0x20)
	if i <= 0 {
		return NoKind
	}
	return PieceKind(i)
}

// Piece packs kind in the low three bits and color in bit 3; zero is empty.
type Piece uint8

const NoPiece Piece = 0

func NewPiece(c Color, k PieceKind) Piece { return Piece(k) | Piece(c)<<3 }

func (p Piece) Kind() PieceKind { return PieceKind(p & 7) }
func (p Piece) Color() Color    { return Color(p >> 3 & 1) }

// FENChar renders the piece as a FEN letter (uppercase for White).
func (p Piece) FENChar() byte {
	ch := p.Kind().Letter()
	if p.Color() == Black {
		ch |= 0x20
	}
	return ch
}

func pieceFromFEN(ch byte) (Piece, bool) {
	k := kindFromLetter(ch)
	if k == NoKind {
		return NoPiece, false
	}
	c := White
	if ch >= 'a' {
		c = Black
	}
	return NewPiece(c, k), true
}
