package pvpchess

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
)

// MultiSink fans history and result writes out to several sinks at once.
// Every sink is attempted and all failures are joined.
type MultiSink struct {
	history []HistorySink
	results []ResultSink
}

func NewMultiSink() *MultiSink { return &MultiSink{} }

func (m *MultiSink) AddHistory(s HistorySink) {
	if s != nil {
		m.history = append(m.history, s)
	}
}

func (m *MultiSink) AddResults(s ResultSink) {
	if s != nil {
		m.results = append(m.results, s)
	}
}

func (m *MultiSink) Empty() bool { return len(m.history) == 0 && len(m.results) == 0 }

func (m *MultiSink) Append(ctx context.Context, tr match.TransitionResult) error {
	var g errgroup.Group
	errs := make([]error, len(m.history))
	for i, s := range m.history {
		g.Go(func() error {
			errs[i] = s.Append(ctx, tr)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (m *MultiSink) SaveResult(ctx context.Context, r domain.MatchResult) error {
	var g errgroup.Group
	errs := make([]error, len(m.results))
	for i, s := range m.results {
		g.Go(func() error {
			errs[i] = s.SaveResult(ctx, r)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
