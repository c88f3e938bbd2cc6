package openingbook

import (
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/Cheese-match-server/internal/chess"
)

var (
	bookOnce sync.Once
	book     *opening.BookECO
)

func ecoBook() *opening.BookECO {
	bookOnce.Do(func() {
		book = opening.NewBookECO()
	})
	return book
}

// Label names the deepest ECO opening matched by a move sequence.
type Label struct {
	Code  string `json:"eco_code"`
	Title string `json:"eco_title"`
}

func (l Label) Empty() bool { return l.Code == "" }

// Classify replays UCI moves from the standard start position and looks the
// line up in the ECO book. Lines that do not start from the standard position,
// or that fail to replay, yield an empty label.
func Classify(startFEN string, movesUCI []string) Label {
	if len(movesUCI) == 0 {
		return Label{}
	}
	if fen := strings.TrimSpace(startFEN); fen != "" && fen != chess.StartFEN {
		return Label{}
	}
	game := chesslib.NewGame()
	for _, mv := range movesUCI {
		if err := game.PushNotationMove(strings.ToLower(strings.TrimSpace(mv)), chesslib.UCINotation{}, nil); err != nil {
			return Label{}
		}
	}
	b := ecoBook()
	if b == nil {
		return Label{}
	}
	if eco := b.Find(game.Moves()); eco != nil {
		return Label{Code: eco.Code(), Title: eco.Title()}
	}
	return Label{}
}
