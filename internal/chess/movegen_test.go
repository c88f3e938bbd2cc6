package chess

import "testing"

func perft(b Board, depth int) int {
	if depth == 0 {
		return 1
	}
	moves := LegalMoves(b)
	if depth == 1 {
		return len(moves)
	}
	n := 0
	for _, m := range moves {
		n += perft(Apply(b, m), depth-1)
	}
	return n
}

func mustParse(t *testing.T, fen string) Board {
	t.Helper()
	b, err := ParsePosition(fen)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", fen, err)
	}
	return b
}

func TestPerft(t *testing.T) {
	cases := []struct {
		name  string
		fen   string
		nodes []int
	}{
		{"start", StartFEN, []int{20, 400, 8902, 197281}},
		{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", []int{48, 2039, 97862}},
		{"position3", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -", []int{14, 191, 2812, 43238}},
		{"position4", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", []int{6, 264, 9467}},
		{"position5", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", []int{44, 1486, 62379}},
		{"ep_pin", "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []int{6, 94}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := mustParse(t, tc.fen)
			for i, want := range tc.nodes {
				depth := i + 1
				if testing.Short() && want > 10000 {
					break
				}
				if got := perft(b, depth); got != want {
					t.Fatalf("perft(%d) = %d, want %d", depth, got, want)
				}
			}
		})
	}
}

func TestPawnGeneration(t *testing.T) {
	b := mustParse(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	var pushes []string
	for _, m := range PseudoLegalMoves(b) {
		if b.Squares[m.From].Kind() == Pawn {
			pushes = append(pushes, m.UCI())
		}
	}
	if len(pushes) != 2 || pushes[0] != "e2e3" || pushes[1] != "e2e4" {
		t.Fatalf("pawn pushes = %v", pushes)
	}

	blocked := mustParse(t, "4k3/8/8/8/4n3/8/4P3/4K3 w - - 0 1")
	for _, m := range PseudoLegalMoves(blocked) {
		if m.UCI() == "e2e4" {
			t.Fatalf("double push through blocker offered")
		}
	}
}

func TestPromotionVariants(t *testing.T) {
	b := mustParse(t, "3r3k/2P5/8/8/8/8/8/4K3 w - - 0 1")
	kinds := map[MoveKind]int{}
	for _, m := range LegalMoves(b) {
		if m.From.String() == "c7" {
			kinds[m.Kind]++
		}
	}
	if kinds[Promotion] != 4 || kinds[PromotionCapture] != 4 {
		t.Fatalf("promotion kinds = %v", kinds)
	}
}

func TestCastlingGeneration(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		want []string
	}{
		{"both", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", []string{"e1g1", "e1c1"}},
		{"through_check", "4kr2/8/8/8/8/8/8/R3K2R w KQ - 0 1", []string{"e1c1"}},
		{"landing_attacked", "4k1r1/8/8/8/8/8/8/R3K2R w KQ - 0 1", []string{"e1c1"}},
		{"in_check", "4k3/8/8/8/8/8/4r3/R3K2R w KQ - 0 1", nil},
		{"blocked", "4k3/8/8/8/8/8/8/RN2K1NR w KQ - 0 1", nil},
		{"no_rights", "4k3/8/8/8/8/8/8/R3K2R w - - 0 1", nil},
		{"b_file_attacked_only", "1r2k3/8/8/8/8/8/8/R3K2R w Q - 0 1", []string{"e1c1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := mustParse(t, tc.fen)
			var got []string
			for _, m := range LegalMoves(b) {
				if m.IsCastle() {
					got = append(got, m.UCI())
				}
			}
			if len(got) != len(tc.want) {
				t.Fatalf("castles = %v, want %v", got, tc.want)
			}
			for _, w := range tc.want {
				found := false
				for _, g := range got {
					if g == w {
						found = true
					}
				}
				if !found {
					t.Fatalf("castles = %v, missing %s", got, w)
				}
			}
		})
	}
}
