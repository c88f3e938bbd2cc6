package chess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrMalformedPosition wraps every position-string parse failure.
var ErrMalformedPosition = errors.New("malformed position")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPosition, fmt.Sprintf(format, args...))
}

// SerializePosition renders b as a six-field FEN string.
func SerializePosition(b Board) string {
	var sb strings.Builder
	sb.Grow(90)
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b.Squares[NewSquare(file, rank)]
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.FENChar())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	sb.WriteByte(' ')
	if b.Turn == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}
	sb.WriteByte(' ')
	sb.WriteString(b.Castling.String())
	sb.WriteByte(' ')
	sb.WriteString(b.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.HalfMove))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.FullMove))
	return sb.String()
}

// ParsePosition parses a FEN string. The two clock fields may be omitted and
// default to "0 1". Positions without exactly one king per side, with pawns on
// the back ranks, or with the side not to move in check are rejected.
func ParsePosition(s string) (Board, error) {
	fields := strings.Fields(s)
	if len(fields) != 6 && len(fields) != 4 {
		return Board{}, malformed("expected 6 fields, got %d", len(fields))
	}
	if len(fields) == 4 {
		fields = append(fields, "0", "1")
	}

	b := Board{EnPassant: NoSquare}
	if err := parsePlacement(&b, fields[0]); err != nil {
		return Board{}, err
	}

	switch fields[1] {
	case "w":
		b.Turn = White
	case "b":
		b.Turn = Black
	default:
		return Board{}, malformed("side to move %q", fields[1])
	}

	castling, err := parseCastling(fields[2])
	if err != nil {
		return Board{}, err
	}
	b.Castling = castling

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return Board{}, malformed("en passant %q", fields[3])
		}
		want := 5
		if b.Turn == Black {
			want = 2
		}
		if sq.Rank() != want {
			return Board{}, malformed("en passant %s on wrong rank", fields[3])
		}
		if !b.doublePushed(sq) {
			return Board{}, malformed("en passant %s without a double-pushed pawn", fields[3])
		}
		b.EnPassant = sq
	}

	if b.HalfMove, err = strconv.Atoi(fields[4]); err != nil || b.HalfMove < 0 {
		return Board{}, malformed("halfmove clock %q", fields[4])
	}
	if b.FullMove, err = strconv.Atoi(fields[5]); err != nil || b.FullMove < 1 {
		return Board{}, malformed("fullmove number %q", fields[5])
	}

	if b.countKings(White) != 1 || b.countKings(Black) != 1 {
		return Board{}, malformed("each side needs exactly one king")
	}
	if IsSquareAttacked(b, b.KingSquare(b.Turn.Other()), b.Turn) {
		return Board{}, malformed("side not to move is in check")
	}
	return b, nil
}

// doublePushed reports whether target could have been skipped by the last
// move: the pushed pawn stands beyond it and both target and origin are empty.
func (b *Board) doublePushed(target Square) bool {
	mover := b.Turn.Other()
	step := 1
	if mover == Black {
		step = -1
	}
	pawn := NewSquare(target.File(), target.Rank()+step)
	origin := NewSquare(target.File(), target.Rank()-step)
	return b.At(pawn) == NewPiece(mover, Pawn) && b.At(target) == NoPiece && b.At(origin) == NoPiece
}

func parsePlacement(b *Board, field string) error {
	ranks := strings.Split(field, "/")
	if len(ranks) != 8 {
		return malformed("expected 8 ranks, got %d", len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			p, ok := pieceFromFEN(ch)
			if !ok {
				return malformed("unknown piece %q", ch)
			}
			if file > 7 {
				return malformed("rank %d overflows", rank+1)
			}
			if p.Kind() == Pawn && (rank == 0 || rank == 7) {
				return malformed("pawn on back rank")
			}
			b.Squares[NewSquare(file, rank)] = p
			file++
		}
		if file != 8 {
			return malformed("rank %d has %d files", rank+1, file)
		}
	}
	return nil
}

func parseCastling(field string) (CastlingRights, error) {
	if field == "-" {
		return NoCastling, nil
	}
	var rights CastlingRights
	for i := 0; i < len(field); i++ {
		var r CastlingRights
		switch field[i] {
		case 'K':
			r = WhiteKingSide
		case 'Q':
			r = WhiteQueenSide
		case 'k':
			r = BlackKingSide
		case 'q':
			r = BlackQueenSide
		default:
			return NoCastling, malformed("castling %q", field)
		}
		if rights.Has(r) {
			return NoCastling, malformed("castling %q repeats a flag", field)
		}
		rights |= r
	}
	return rights, nil
}
