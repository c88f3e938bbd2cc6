package chess

var promotionKinds = [4]PieceKind{Queen, Rook, Bishop, Knight}

// PseudoLegalMoves lists every geometrically valid move for the side to move,
// without checking whether the mover's king is left attacked. Castling is only
// offered through empty squares and when the king is not currently attacked.
func PseudoLegalMoves(b Board) []Move {
	moves := make([]Move, 0, 48)
	for sq := Square(0); sq < 64; sq++ {
		p := b.Squares[sq]
		if p == NoPiece || p.Color() != b.Turn {
			continue
		}
		switch p.Kind() {
		case Pawn:
			moves = genPawn(b, sq, moves)
		case Knight:
			moves = genSteps(b, sq, knightDeltas[:], moves)
		case Bishop:
			moves = genSlides(b, sq, bishopDirs[:], moves)
		case Rook:
			moves = genSlides(b, sq, rookDirs[:], moves)
		case Queen:
			moves = genSlides(b, sq, bishopDirs[:], moves)
			moves = genSlides(b, sq, rookDirs[:], moves)
		case King:
			moves = genSteps(b, sq, kingDeltas[:], moves)
			moves = genCastles(b, sq, moves)
		}
	}
	return moves
}

func genPawn(b Board, sq Square, moves []Move) []Move {
	dir, startRank, lastRank := 1, 1, 7
	if b.Turn == Black {
		dir, startRank, lastRank = -1, 6, 0
	}

	if one, ok := offset(sq, 0, dir); ok && b.Squares[one] == NoPiece {
		moves = addPawnMove(moves, sq, one, lastRank, false)
		if sq.Rank() == startRank {
			if two, ok := offset(sq, 0, 2*dir); ok && b.Squares[two] == NoPiece {
				moves = append(moves, Move{From: sq, To: two, Kind: Normal})
			}
		}
	}

	for _, df := range [2]int{-1, 1} {
		to, ok := offset(sq, df, dir)
		if !ok {
			continue
		}
		target := b.Squares[to]
		switch {
		case target != NoPiece && target.Color() != b.Turn:
			moves = addPawnMove(moves, sq, to, lastRank, true)
		case target == NoPiece && to == b.EnPassant:
			moves = append(moves, Move{From: sq, To: to, Kind: EnPassant})
		}
	}
	return moves
}

func addPawnMove(moves []Move, from, to Square, lastRank int, capture bool) []Move {
	if to.Rank() != lastRank {
		kind := Normal
		if capture {
			kind = Capture
		}
		return append(moves, Move{From: from, To: to, Kind: kind})
	}
	kind := Promotion
	if capture {
		kind = PromotionCapture
	}
	for _, k := range promotionKinds {
		moves = append(moves, Move{From: from, To: to, Promotion: k, Kind: kind})
	}
	return moves
}

func genSteps(b Board, sq Square, deltas [][2]int, moves []Move) []Move {
	for _, d := range deltas {
		to, ok := offset(sq, d[0], d[1])
		if !ok {
			continue
		}
		target := b.Squares[to]
		switch {
		case target == NoPiece:
			moves = append(moves, Move{From: sq, To: to, Kind: Normal})
		case target.Color() != b.Turn:
			moves = append(moves, Move{From: sq, To: to, Kind: Capture})
		}
	}
	return moves
}

func genSlides(b Board, sq Square, dirs [][2]int, moves []Move) []Move {
	for _, d := range dirs {
		cur := sq
		for {
			to, ok := offset(cur, d[0], d[1])
			if !ok {
				break
			}
			target := b.Squares[to]
			if target == NoPiece {
				moves = append(moves, Move{From: sq, To: to, Kind: Normal})
				cur = to
				continue
			}
			if target.Color() != b.Turn {
				moves = append(moves, Move{From: sq, To: to, Kind: Capture})
			}
			break
		}
	}
	return moves
}

type castleSpec struct {
	right    CastlingRights
	kind     MoveKind
	rookFrom int
	kingTo   int
	empty    []int
}

var castleSpecs = [2][2]castleSpec{
	White: {
		{right: WhiteKingSide, kind: CastleKingSide, rookFrom: 7, kingTo: 6, empty: []int{5, 6}},
		{right: WhiteQueenSide, kind: CastleQueenSide, rookFrom: 0, kingTo: 2, empty: []int{1, 2, 3}},
	},
	Black: {
		{right: BlackKingSide, kind: CastleKingSide, rookFrom: 7, kingTo: 6, empty: []int{5, 6}},
		{right: BlackQueenSide, kind: CastleQueenSide, rookFrom: 0, kingTo: 2, empty: []int{1, 2, 3}},
	},
}

func genCastles(b Board, sq Square, moves []Move) []Move {
	us := b.Turn
	home := E1
	if us == Black {
		home = E8
	}
	if sq != home || b.Castling&(castleSpecs[us][0].right|castleSpecs[us][1].right) == 0 {
		return moves
	}
	if IsSquareAttacked(b, home, us.Other()) {
		return moves
	}
	rank := home.Rank()
	rook := NewPiece(us, Rook)
	for _, cs := range castleSpecs[us] {
		if !b.Castling.Has(cs.right) || b.Squares[NewSquare(cs.rookFrom, rank)] != rook {
			continue
		}
		vacant := true
		for _, f := range cs.empty {
			if b.Squares[NewSquare(f, rank)] != NoPiece {
				vacant = false
				break
			}
		}
		if vacant {
			moves = append(moves, Move{From: home, To: NewSquare(cs.kingTo, rank), Kind: cs.kind})
		}
	}
	return moves
}
