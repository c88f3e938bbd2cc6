package chess

import "errors"

// ErrIllegalMove is returned when a move is not in the legal set for the
// current position, including client input that names no legal move.
var ErrIllegalMove = errors.New("illegal move")

// LegalMoves filters the pseudo-legal set down to moves that do not leave the
// mover's king attacked.
func LegalMoves(b Board) []Move {
	pseudo := PseudoLegalMoves(b)
	legal := pseudo[:0]
	for _, m := range pseudo {
		if kingSafeAfter(b, m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// IsLegal checks a single move. Moves absent from the pseudo-legal set are
// rejected before any board is built.
func IsLegal(b Board, m Move) bool {
	for _, pm := range PseudoLegalMoves(b) {
		if pm == m {
			return kingSafeAfter(b, m)
		}
	}
	return false
}

// HasLegalMoves stops at the first legal move.
func HasLegalMoves(b Board) bool {
	for _, m := range PseudoLegalMoves(b) {
		if kingSafeAfter(b, m) {
			return true
		}
	}
	return false
}

// kingSafeAfter applies m to a scratch copy; b itself is never touched.
func kingSafeAfter(b Board, m Move) bool {
	us := b.Turn
	them := us.Other()
	if m.IsCastle() {
		if IsSquareAttacked(b, m.From, them) {
			return false
		}
		transit := Square((int(m.From) + int(m.To)) / 2)
		if IsSquareAttacked(b, transit, them) {
			return false
		}
	}
	next := Apply(b, m)
	return !IsSquareAttacked(next, next.KingSquare(us), them)
}
