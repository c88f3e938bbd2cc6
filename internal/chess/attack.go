package chess

var (
	knightDeltas = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingDeltas   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	bishopDirs   = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rookDirs     = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// IsSquareAttacked reports whether any piece of side by attacks sq.
func IsSquareAttacked(b Board, sq Square, by Color) bool {
	if !sq.Valid() {
		return false
	}

	// A pawn of side by attacks sq from one rank behind, relative to its direction.
	dr := -1
	if by == Black {
		dr = 1
	}
	pawn := NewPiece(by, Pawn)
	for _, df := range [2]int{-1, 1} {
		if from, ok := offset(sq, df, dr); ok && b.Squares[from] == pawn {
			return true
		}
	}

	knight := NewPiece(by, Knight)
	for _, d := range knightDeltas {
		if from, ok := offset(sq, d[0], d[1]); ok && b.Squares[from] == knight {
			return true
		}
	}

	king := NewPiece(by, King)
	for _, d := range kingDeltas {
		if from, ok := offset(sq, d[0], d[1]); ok && b.Squares[from] == king {
			return true
		}
	}

	queen := NewPiece(by, Queen)
	if rayHits(b, sq, bishopDirs[:], NewPiece(by, Bishop), queen) {
		return true
	}
	return rayHits(b, sq, rookDirs[:], NewPiece(by, Rook), queen)
}

// rayHits walks each direction until the first occupied square and checks
// whether it holds one of the two slider pieces.
func rayHits(b Board, sq Square, dirs [][2]int, slider, queen Piece) bool {
	for _, d := range dirs {
		cur := sq
		for {
			next, ok := offset(cur, d[0], d[1])
			if !ok {
				break
			}
			p := b.Squares[next]
			if p != NoPiece {
				if p == slider || p == queen {
					return true
				}
				break
			}
			cur = next
		}
	}
	return false
}

// InCheck reports whether the side to move has its king attacked.
func InCheck(b Board) bool {
	return IsSquareAttacked(b, b.KingSquare(b.Turn), b.Turn.Other())
}
