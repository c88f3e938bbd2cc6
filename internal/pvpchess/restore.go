package pvpchess

import (
	"time"

	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
)

// restoreGame rebuilds a match from its seed, the persisted plies and, for a
// concluded match, its result. The result's move list wins over the ply log
// because ply writes are best effort.
func restoreGame(seed domain.MatchSeed, plies []match.TransitionResult, res *domain.MatchResult) (*match.Game, error) {
	rec := match.Record{ID: seed.ID, StartFEN: seed.StartFEN}
	if res != nil && len(res.MovesUCI) >= len(plies) {
		for i, uci := range res.MovesUCI {
			p := match.Ply{Index: i, UCI: uci}
			if i < len(plies) && plies[i].Ply == i {
				p.CreatedAt = plies[i].CreatedAt
			}
			rec.Plies = append(rec.Plies, p)
		}
	} else {
		for i, tr := range plies {
			if tr.Ply != i {
				// gap from a lost write; the rest cannot replay
				break
			}
			rec.Plies = append(rec.Plies, match.Ply{Index: i, UCI: tr.UCI, CreatedAt: tr.CreatedAt})
		}
	}
	if res != nil {
		rec.Status = match.Status(res.Status)
		rec.Termination = match.Termination(res.Termination)
		rec.Result = match.Result(res.Result)
		rec.ConcludedBy = res.ConcludedBy
	}
	return match.Restore(rec)
}

// resultFromRecord builds the durable result of a concluded match.
func resultFromRecord(seed domain.MatchSeed, rec match.Record, finalFEN string, endedAt time.Time) domain.MatchResult {
	r := domain.MatchResult{
		MatchID:     rec.ID,
		WhiteID:     seed.WhiteID,
		BlackID:     seed.BlackID,
		StartFEN:    rec.StartFEN,
		Status:      string(rec.Status),
		Termination: string(rec.Termination),
		Result:      string(rec.Result),
		ConcludedBy: rec.ConcludedBy,
		FinalFEN:    finalFEN,
		MovesUCI:    make([]string, 0, len(rec.Plies)),
		MovesSAN:    make([]string, 0, len(rec.Plies)),
		StartedAt:   seed.CreatedAt,
		EndedAt:     endedAt,
	}
	for _, p := range rec.Plies {
		r.MovesUCI = append(r.MovesUCI, p.UCI)
		r.MovesSAN = append(r.MovesSAN, p.SAN)
	}
	if !r.StartedAt.IsZero() && r.EndedAt.After(r.StartedAt) {
		r.Duration = r.EndedAt.Sub(r.StartedAt)
	}
	r.PGN = buildPGN(r)
	return r
}
