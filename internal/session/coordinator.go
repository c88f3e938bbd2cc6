package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/park285/Cheese-match-server/internal/match"
)

// ErrMatchNotFound is returned when no loader can supply a match.
var ErrMatchNotFound = errors.New("match not found")

// StateLoader supplies the game for a match id on first access. Unknown ids
// must yield ErrMatchNotFound (or a nil game).
type StateLoader interface {
	Load(ctx context.Context, id string) (*match.Game, error)
}

// LoaderFunc adapts a function to StateLoader.
type LoaderFunc func(ctx context.Context, id string) (*match.Game, error)

func (f LoaderFunc) Load(ctx context.Context, id string) (*match.Game, error) { return f(ctx, id) }

type entry struct {
	mu      sync.Mutex
	game    *match.Game
	evicted bool
}

// Coordinator gives serialized access to one match.Game per match id. The
// map lock is only held to find or insert entries; each entry has its own
// mutex, so unrelated matches never wait on each other.
type Coordinator struct {
	loader StateLoader

	mu      sync.Mutex
	entries map[string]*entry

	loads singleflight.Group
}

func New(loader StateLoader) *Coordinator {
	return &Coordinator{
		loader:  loader,
		entries: make(map[string]*entry),
	}
}

// WithMatch runs fn with exclusive access to the match. Calls for the same id
// are totally ordered; fn must not block on I/O. The lock is always released,
// including when fn returns an error or panics.
func (c *Coordinator) WithMatch(ctx context.Context, id string, fn func(*match.Game) error) error {
	for {
		e, err := c.acquire(ctx, id)
		if err != nil {
			return err
		}
		e.mu.Lock()
		if e.evicted {
			// evicted while we waited; the next pass reloads it
			e.mu.Unlock()
			continue
		}
		return runLocked(e, fn)
	}
}

func runLocked(e *entry, fn func(*match.Game) error) error {
	defer e.mu.Unlock()
	return fn(e.game)
}

// Snapshot reads the match under its lock.
func (c *Coordinator) Snapshot(ctx context.Context, id string) (match.Snapshot, error) {
	var snap match.Snapshot
	err := c.WithMatch(ctx, id, func(g *match.Game) error {
		snap = g.Snapshot()
		return nil
	})
	return snap, err
}

// Register installs a freshly created game so its first access skips the loader.
func (c *Coordinator) Register(g *match.Game) error {
	if g == nil {
		return errors.New("nil game")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[g.ID()]; ok {
		return fmt.Errorf("match %s already registered", g.ID())
	}
	c.entries[g.ID()] = &entry{game: g}
	return nil
}

// Evict drops a resident match. It waits for any in-flight call on the match
// to finish; callers queued behind it reload from the StateLoader.
func (c *Coordinator) Evict(id string) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c.mu.Lock()
	if c.entries[id] == e {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	e.evicted = true
	return true
}

// Len reports the number of resident matches.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Coordinator) lookup(id string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

// acquire returns the resident entry or loads it. Loads run outside every
// lock, and concurrent first accesses to one id share a single load. A loaded
// game that has already concluded is handed out without being cached.
func (c *Coordinator) acquire(ctx context.Context, id string) (*entry, error) {
	if e, ok := c.lookup(id); ok {
		return e, nil
	}
	if c.loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}

	v, err, _ := c.loads.Do(id, func() (any, error) {
		if e, ok := c.lookup(id); ok {
			return e, nil
		}
		g, err := c.loader.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
		}
		if g.Status().Terminal() {
			// concluded matches are served from the store and never become resident
			return &entry{game: g}, nil
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[id]; ok {
			return e, nil
		}
		e := &entry{game: g}
		c.entries[id] = e
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}
