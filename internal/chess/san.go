package chess

import (
	"fmt"
	"strings"
)

// EncodeSAN renders m in standard algebraic notation. legal must be the legal
// move set of b; it drives disambiguation.
func EncodeSAN(b Board, m Move, legal []Move) string {
	var sb strings.Builder
	switch m.Kind {
	case CastleKingSide:
		sb.WriteString("O-O")
	case CastleQueenSide:
		sb.WriteString("O-O-O")
	default:
		p := b.Squares[m.From]
		if p.Kind() == Pawn {
			if m.IsCapture() {
				sb.WriteByte(byte('a' + m.From.File()))
				sb.WriteByte('x')
			}
			sb.WriteString(m.To.String())
			if m.Promotion != NoKind {
				sb.WriteByte('=')
				sb.WriteByte(m.Promotion.Letter())
			}
		} else {
			sb.WriteByte(p.Kind().Letter())
			sb.WriteString(disambiguation(b, m, legal))
			if m.IsCapture() {
				sb.WriteByte('x')
			}
			sb.WriteString(m.To.String())
		}
	}

	next := Apply(b, m)
	if InCheck(next) {
		if HasLegalMoves(next) {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// disambiguation picks file, then rank, then both, when another piece of the
// same kind can also reach the destination.
func disambiguation(b Board, m Move, legal []Move) string {
	p := b.Squares[m.From]
	ambiguous, sameFile, sameRank := false, false, false
	for _, o := range legal {
		if o.From == m.From || o.To != m.To || b.Squares[o.From] != p {
			continue
		}
		ambiguous = true
		if o.From.File() == m.From.File() {
			sameFile = true
		}
		if o.From.Rank() == m.From.Rank() {
			sameRank = true
		}
	}
	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(byte('a' + m.From.File()))
	case !sameRank:
		return string(byte('1' + m.From.Rank()))
	default:
		return m.From.String()
	}
}

// DecodeSAN resolves algebraic notation against the legal moves of b. Check
// and annotation suffixes are ignored, "0-0" is read as castling and the "="
// before a promotion piece is optional.
func DecodeSAN(b Board, s string) (Move, error) {
	want := normalizeSAN(s)
	if want == "" {
		return Move{}, fmt.Errorf("%w: empty notation", ErrIllegalMove)
	}
	legal := LegalMoves(b)
	for _, m := range legal {
		if normalizeSAN(EncodeSAN(b, m, legal)) == want {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, strings.TrimSpace(s))
}

func normalizeSAN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "+#!?")
	s = strings.ReplaceAll(s, "0", "O")
	s = strings.ReplaceAll(s, "=", "")
	return s
}
