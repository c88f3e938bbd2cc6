package chess

import (
	"math/rand"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

// TestAgreesWithReferenceLibrary plays seeded random games and checks that the
// legal move count and every SAN string match corentings/chess.
func TestAgreesWithReferenceLibrary(t *testing.T) {
	games := 40
	if testing.Short() {
		games = 8
	}
	for seed := int64(1); seed <= int64(games); seed++ {
		rng := rand.New(rand.NewSource(seed))
		ref := nchess.NewGame()
		b := StartingBoard()

		for ply := 0; ply < 200; ply++ {
			if ref.Outcome() != nchess.NoOutcome {
				break
			}
			legal := LegalMoves(b)
			if got, want := len(legal), len(ref.ValidMoves()); got != want {
				t.Fatalf("seed %d ply %d %s: %d legal moves, reference has %d", seed, ply, SerializePosition(b), got, want)
			}
			if len(legal) == 0 {
				break
			}

			pos := ref.Position()
			for _, m := range legal {
				rm, err := nchess.UCINotation{}.Decode(pos, m.UCI())
				if err != nil {
					t.Fatalf("seed %d ply %d: reference rejects %s: %v", seed, ply, m.UCI(), err)
				}
				if got, want := EncodeSAN(b, m, legal), (nchess.AlgebraicNotation{}).Encode(pos, rm); got != want {
					t.Fatalf("seed %d ply %d %s: SAN %q, reference %q", seed, ply, SerializePosition(b), got, want)
				}
			}

			pick := legal[rng.Intn(len(legal))]
			if err := ref.PushNotationMove(pick.UCI(), nchess.UCINotation{}, nil); err != nil {
				t.Fatalf("seed %d ply %d: reference push %s: %v", seed, ply, pick.UCI(), err)
			}
			b = Apply(b, pick)
		}
	}
}
