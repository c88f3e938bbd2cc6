package pvpchess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/session"
)

// InMemoryDir selects badger's in-memory mode.
const InMemoryDir = ":memory:"

const maxTxnRetries = 3

// BadgerStore is an embedded Store for single-node deployments.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(dir string) (*BadgerStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("BADGER_DIR is required")
	}
	var opts badger.Options
	if dir == InMemoryDir {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) SaveSeed(ctx context.Context, seed domain.MatchSeed) error {
	raw, err := json.Marshal(seed)
	if err != nil {
		return err
	}
	key := []byte(seedKey(seed.ID))
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", errSeedExists, seed.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, raw)
	})
}

func (s *BadgerStore) LoadSeed(ctx context.Context, matchID string) (domain.MatchSeed, error) {
	var seed domain.MatchSeed
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, seedKey(matchID), &seed)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return seed, fmt.Errorf("%w: %s", session.ErrMatchNotFound, matchID)
	}
	return seed, err
}

// Append writes match:{id}:ply:{%06d}. An existing ply must hold the same
// move. Transactions that lose a race on the same key are retried.
func (s *BadgerStore) Append(ctx context.Context, tr match.TransitionResult) error {
	raw, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	key := plyKey(tr.MatchID, tr.Ply)
	for attempt := 0; ; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			var stored match.TransitionResult
			switch err := getJSON(txn, key, &stored); {
			case err == nil:
				return samePly(stored, tr)
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			return txn.Set([]byte(key), raw)
		})
		if !errors.Is(err, badger.ErrConflict) || attempt >= maxTxnRetries {
			return err
		}
	}
}

func (s *BadgerStore) History(ctx context.Context, matchID string) ([]match.TransitionResult, error) {
	var out []match.TransitionResult
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(seedKey(matchID))); err != nil {
			return err
		}
		var err error
		out, err = scanPlies(txn, matchID)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", session.ErrMatchNotFound, matchID)
	}
	return out, err
}

func (s *BadgerStore) SaveResult(ctx context.Context, r domain.MatchResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(resultKey(r.MatchID)), raw)
	})
}

// Load reads seed, plies and result in one consistent view.
func (s *BadgerStore) Load(ctx context.Context, id string) (*match.Game, error) {
	var (
		seed  domain.MatchSeed
		plies []match.TransitionResult
		res   *domain.MatchResult
	)
	err := s.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, seedKey(id), &seed); err != nil {
			return err
		}
		var err error
		if plies, err = scanPlies(txn, id); err != nil {
			return err
		}
		var r domain.MatchResult
		switch err := getJSON(txn, resultKey(id), &r); {
		case err == nil:
			res = &r
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", session.ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return restoreGame(seed, plies, res)
}

// scanPlies iterates the ply prefix; zero-padded indexes keep key order equal
// to ply order.
func scanPlies(txn *badger.Txn, matchID string) ([]match.TransitionResult, error) {
	prefix := []byte(plyPrefix(matchID))
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []match.TransitionResult
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var tr match.TransitionResult
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &tr)
		}); err != nil {
			return nil, fmt.Errorf("decode ply of %s: %w", matchID, err)
		}
		out = append(out, tr)
	}
	return out, nil
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func plyPrefix(id string) string { return "match:" + strings.TrimSpace(id) + ":ply:" }
func plyKey(id string, ply int) string {
	return fmt.Sprintf("%s%06d", plyPrefix(id), ply)
}
