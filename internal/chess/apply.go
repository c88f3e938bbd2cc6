package chess

// Apply returns the position after m. The input board is left unchanged, so
// callers keep it for rollback and for before/after notation. m is assumed to
// come from the move generator for b.
func Apply(b Board, m Move) Board {
	next := b
	us := b.Turn
	moved := next.Squares[m.From]
	captured := next.Squares[m.To]

	next.Squares[m.From] = NoPiece
	switch m.Kind {
	case EnPassant:
		victim := NewSquare(m.To.File(), m.From.Rank())
		captured = next.Squares[victim]
		next.Squares[victim] = NoPiece
	case CastleKingSide, CastleQueenSide:
		rank := m.From.Rank()
		rookFrom, rookTo := 7, 5
		if m.Kind == CastleQueenSide {
			rookFrom, rookTo = 0, 3
		}
		next.Squares[NewSquare(rookTo, rank)] = next.Squares[NewSquare(rookFrom, rank)]
		next.Squares[NewSquare(rookFrom, rank)] = NoPiece
	}

	placed := moved
	if m.Promotion != NoKind {
		placed = NewPiece(us, m.Promotion)
	}
	next.Squares[m.To] = placed

	next.Castling &^= castlingLoss(m.From) | castlingLoss(m.To)

	next.EnPassant = NoSquare
	if moved.Kind() == Pawn {
		if d := m.To.Rank() - m.From.Rank(); d == 2 || d == -2 {
			next.EnPassant = NewSquare(m.From.File(), (m.From.Rank()+m.To.Rank())/2)
		}
	}

	if moved.Kind() == Pawn || captured != NoPiece {
		next.HalfMove = 0
	} else {
		next.HalfMove++
	}
	if us == Black {
		next.FullMove++
	}
	next.Turn = us.Other()
	return next
}

// castlingLoss lists the rights lost when a piece leaves or lands on sq.
func castlingLoss(sq Square) CastlingRights {
	switch sq {
	case E1:
		return WhiteKingSide | WhiteQueenSide
	case H1:
		return WhiteKingSide
	case A1:
		return WhiteQueenSide
	case E8:
		return BlackKingSide | BlackQueenSide
	case H8:
		return BlackKingSide
	case A8:
		return BlackQueenSide
	}
	return NoCastling
}
