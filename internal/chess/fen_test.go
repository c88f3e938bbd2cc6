package chess

import (
	"errors"
	"math/rand"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		"4k3/8/8/8/8/8/8/4K3 b - - 99 142",
	}
	for _, fen := range fens {
		b := mustParse(t, fen)
		if got := SerializePosition(b); got != fen {
			t.Fatalf("SerializePosition = %q, want %q", got, fen)
		}
	}
}

func TestRoundTripReachablePositions(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		b := StartingBoard()
		for ply := 0; ply < 120; ply++ {
			back, err := ParsePosition(SerializePosition(b))
			if err != nil {
				t.Fatalf("seed %d ply %d: %v", seed, ply, err)
			}
			if back != b {
				t.Fatalf("seed %d ply %d: round trip mismatch for %s", seed, ply, SerializePosition(b))
			}
			moves := LegalMoves(b)
			if len(moves) == 0 {
				break
			}
			b = Apply(b, moves[rng.Intn(len(moves))])
		}
	}
}

func TestParsePositionDefaultsClocks(t *testing.T) {
	b := mustParse(t, "4k3/8/8/8/8/8/8/4K3 w - -")
	if b.HalfMove != 0 || b.FullMove != 1 {
		t.Fatalf("clocks = %d %d", b.HalfMove, b.FullMove)
	}
}

func TestParsePositionMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"too_few_fields":  "8/8/8/8/8/8/8/8 w",
		"seven_ranks":     "8/8/8/8/8/8/8 w - - 0 1",
		"wide_rank":       "4k4/8/8/8/8/8/8/4K3 w - - 0 1",
		"short_rank":      "4k2/8/8/8/8/8/8/4K3 w - - 0 1",
		"bad_piece":       "4k3/8/8/8/8/8/8/4X3 w - - 0 1",
		"bad_turn":        "4k3/8/8/8/8/8/8/4K3 x - - 0 1",
		"bad_castling":    "4k3/8/8/8/8/8/8/4K3 w KX - 0 1",
		"dup_castling":    "4k3/8/8/8/8/8/8/4K3 w KK - 0 1",
		"bad_ep":          "4k3/8/8/8/8/8/8/4K3 w - e4 0 1",
		"ep_wrong_rank":   "4k3/8/8/8/8/8/8/4K3 w - e3 0 1",
		"ep_no_pawn":      "4k3/8/8/3P4/8/8/8/4K3 w - e6 0 1",
		"ep_over_knight":  "4k3/8/8/3Pn3/8/8/8/4K3 w - e6 0 1",
		"ep_target_taken": "4k3/8/4n3/3Pp3/8/8/8/4K3 w - e6 0 1",
		"ep_origin_taken": "4k3/4n3/8/3Pp3/8/8/8/4K3 w - e6 0 1",
		"ep_own_pawn":     "4k3/8/8/8/3p4/8/8/4K3 b - d3 0 1",
		"neg_halfmove":    "4k3/8/8/8/8/8/8/4K3 w - - -1 1",
		"zero_fullmove":   "4k3/8/8/8/8/8/8/4K3 w - - 0 0",
		"no_black_king":   "8/8/8/8/8/8/8/4K3 w - - 0 1",
		"two_white_kings": "4k3/8/8/8/8/8/8/3KK3 w - - 0 1",
		"pawn_back_rank":  "4k2P/8/8/8/8/8/8/4K3 w - - 0 1",
		"opponent_check":  "4k3/8/8/8/8/8/8/4R1K1 w - - 0 1",
	}
	for name, fen := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePosition(fen)
			if !errors.Is(err, ErrMalformedPosition) {
				t.Fatalf("ParsePosition(%q) err = %v", fen, err)
			}
		})
	}
}
