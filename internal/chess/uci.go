package chess

import (
	"fmt"
	"strings"
)

// ParseUCI resolves coordinate notation ("e2e4", "e7e8q") to a legal move.
func ParseUCI(b Board, s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q is not coordinate notation", ErrIllegalMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	promo := NoKind
	if len(s) == 5 {
		promo = kindFromLetter(s[4])
		if promo == NoKind || promo == Pawn || promo == King {
			return Move{}, fmt.Errorf("%w: bad promotion in %q", ErrIllegalMove, s)
		}
	}
	for _, m := range LegalMoves(b) {
		if m.From == from && m.To == to && m.Promotion == promo {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}

// ParseMove accepts UCI first and falls back to SAN.
func ParseMove(b Board, s string) (Move, error) {
	if m, err := ParseUCI(b, s); err == nil {
		return m, nil
	}
	return DecodeSAN(b, s)
}
