package pvpchess

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/domain"
)

// buildPGN renders the seven-tag roster plus the numbered SAN move text.
// Non-standard start positions add SetUp/FEN tags and number from the
// position's own move counters.
func buildPGN(r domain.MatchResult) string {
	var b strings.Builder
	date := r.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	result := r.Result
	if strings.TrimSpace(result) == "" {
		result = "*"
	}

	b.WriteString("[Event \"Cheese match\"]\n")
	b.WriteString("[Site \"Cheese\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[Round \"-\"]\n")
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(orUnknown(r.WhiteID))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(orUnknown(r.BlackID))))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n", result))

	number, blackFirst := 1, false
	if fen := strings.TrimSpace(r.StartFEN); fen != "" && fen != chess.StartFEN {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(fen)))
		if start, err := chess.ParsePosition(fen); err == nil {
			number, blackFirst = start.FullMove, start.Turn == chess.Black
		}
	}
	if t := strings.TrimSpace(r.Termination); t != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(t)))
	}
	b.WriteString("\n")

	sans := r.MovesSAN
	i := 0
	if blackFirst && len(sans) > 0 {
		b.WriteString(fmt.Sprintf("%d... %s ", number, strings.TrimSpace(sans[0])))
		number++
		i = 1
	}
	for ; i < len(sans); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", number, strings.TrimSpace(sans[i])))
		if i+1 < len(sans) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(sans[i+1]))
		}
		b.WriteString(" ")
		number++
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}
