package pvpchess

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/Cheese-match-server/internal/domain"
)

func TestBuildPGN(t *testing.T) {
	r := domain.MatchResult{
		WhiteID:     `al"ice`,
		BlackID:     "",
		Result:      "1-0",
		Termination: "resignation",
		MovesSAN:    []string{"e4", "e5", "Qh5"},
		EndedAt:     time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
	}
	pgn := buildPGN(r)
	for _, want := range []string{
		"[Date \"2026.02.03\"]",
		"[White \"al'ice\"]",
		"[Black \"?\"]",
		"[Result \"1-0\"]",
		"[Termination \"resignation\"]",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("missing %s in\n%s", want, pgn)
		}
	}
	if !strings.HasSuffix(pgn, "\n\n1. e4 e5 2. Qh5 1-0") {
		t.Fatalf("movetext:\n%s", pgn)
	}
	if strings.Contains(pgn, "[FEN") {
		t.Fatalf("standard start should not emit FEN tag")
	}
}

func TestBuildPGNCustomStartBlackToMove(t *testing.T) {
	r := domain.MatchResult{
		StartFEN: "4k3/8/8/8/8/8/8/R3K3 b Q - 0 12",
		MovesSAN: []string{"Kd7", "Ra7+"},
	}
	pgn := buildPGN(r)
	if !strings.Contains(pgn, "[SetUp \"1\"]") || !strings.Contains(pgn, "[FEN \"4k3/8/8/8/8/8/8/R3K3 b Q - 0 12\"]") {
		t.Fatalf("setup tags missing:\n%s", pgn)
	}
	if !strings.HasSuffix(pgn, "12... Kd7 13. Ra7+ *") {
		t.Fatalf("movetext:\n%s", pgn)
	}
}
