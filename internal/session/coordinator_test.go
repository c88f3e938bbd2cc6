package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/match"
)

type countingLoader struct {
	loads atomic.Int32
	delay time.Duration
	known map[string]bool
}

func (l *countingLoader) Load(ctx context.Context, id string) (*match.Game, error) {
	l.loads.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.known != nil && !l.known[id] {
		return nil, ErrMatchNotFound
	}
	return match.New(id, chess.StartingBoard()), nil
}

func submit(g *match.Game, side chess.Color, s string) error {
	m, err := chess.ParseMove(g.Board(), s)
	if err != nil {
		return err
	}
	_, err = g.SubmitMove(side, m)
	return err
}

func TestConcurrentSubmitsApplyExactlyOnce(t *testing.T) {
	c := New(&countingLoader{})
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	var applied, rejected atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithMatch(ctx, "m1", func(g *match.Game) error {
				return submit(g, chess.White, "e2e4")
			})
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, match.ErrIllegalMove):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if applied.Load() != 1 || rejected.Load() != n-1 {
		t.Fatalf("applied=%d rejected=%d", applied.Load(), rejected.Load())
	}
	snap, err := c.Snapshot(ctx, "m1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Plies != 1 {
		t.Fatalf("plies = %d", snap.Plies)
	}
}

func TestBodiesNeverOverlapForOneMatch(t *testing.T) {
	c := New(&countingLoader{})
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.WithMatch(ctx, "m1", func(g *match.Game) error {
				cur := inside.Add(1)
				for {
					prev := maxInside.Load()
					if cur <= prev || maxInside.CompareAndSwap(prev, cur) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	if maxInside.Load() != 1 {
		t.Fatalf("max concurrent bodies = %d", maxInside.Load())
	}
}

func TestDistinctMatchesDoNotBlock(t *testing.T) {
	c := New(&countingLoader{})
	ctx := context.Background()

	hold := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = c.WithMatch(ctx, "slow", func(g *match.Game) error {
			close(entered)
			<-hold
			return nil
		})
	}()
	<-entered
	defer close(hold)

	done := make(chan error, 1)
	go func() {
		done <- c.WithMatch(ctx, "fast", func(g *match.Game) error {
			return submit(g, chess.White, "d2d4")
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("fast match: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("independent match blocked behind a held match")
	}
}

func TestFirstAccessLoadsOnce(t *testing.T) {
	loader := &countingLoader{delay: 20 * time.Millisecond}
	c := New(loader)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Snapshot(ctx, "m1"); err != nil {
				t.Errorf("Snapshot: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := loader.loads.Load(); got != 1 {
		t.Fatalf("loads = %d", got)
	}
}

func TestUnknownMatch(t *testing.T) {
	c := New(&countingLoader{known: map[string]bool{}})
	err := c.WithMatch(context.Background(), "nope", func(*match.Game) error { return nil })
	if !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("err = %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("unknown match became resident")
	}

	nilLoader := New(LoaderFunc(func(context.Context, string) (*match.Game, error) { return nil, nil }))
	if _, err := nilLoader.Snapshot(context.Background(), "nope"); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("nil game err = %v", err)
	}
}

func TestErrorReleasesLock(t *testing.T) {
	c := New(&countingLoader{})
	ctx := context.Background()
	boom := errors.New("boom")
	if err := c.WithMatch(ctx, "m1", func(*match.Game) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- c.WithMatch(ctx, "m1", func(g *match.Game) error { return submit(g, chess.White, "e4") })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second call: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("lock still held after error")
	}
}

func TestEvictReloads(t *testing.T) {
	loader := &countingLoader{}
	c := New(loader)
	ctx := context.Background()

	if _, err := c.Snapshot(ctx, "m1"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !c.Evict("m1") || c.Len() != 0 {
		t.Fatalf("evict failed, len=%d", c.Len())
	}
	if c.Evict("m1") {
		t.Fatalf("second evict reported success")
	}
	if _, err := c.Snapshot(ctx, "m1"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := loader.loads.Load(); got != 2 {
		t.Fatalf("loads = %d", got)
	}
}

func TestRegisterSkipsLoader(t *testing.T) {
	loader := &countingLoader{known: map[string]bool{}}
	c := New(loader)
	g := match.New("fresh", chess.StartingBoard())
	if err := c.Register(g); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Register(g); err == nil {
		t.Fatalf("duplicate register accepted")
	}
	if _, err := c.Snapshot(context.Background(), "fresh"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if loader.loads.Load() != 0 {
		t.Fatalf("loader called for registered match")
	}
}

func TestConcludedMatchIsNotCached(t *testing.T) {
	var loads atomic.Int32
	c := New(LoaderFunc(func(ctx context.Context, id string) (*match.Game, error) {
		loads.Add(1)
		g := match.New(id, chess.StartingBoard())
		if _, err := g.Resign(chess.Black); err != nil {
			return nil, err
		}
		return g, nil
	}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := c.Snapshot(ctx, "done")
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if snap.Status != match.StatusResigned {
			t.Fatalf("status = %s", snap.Status)
		}
	}
	err := c.WithMatch(ctx, "done", func(g *match.Game) error {
		_, err := g.Resign(chess.White)
		return err
	})
	if !errors.Is(err, match.ErrMatchAlreadyConcluded) {
		t.Fatalf("err = %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("concluded match became resident, len=%d", c.Len())
	}
	if got := loads.Load(); got != 4 {
		t.Fatalf("loads = %d", got)
	}
}
