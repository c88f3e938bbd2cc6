package pvpchess

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/session"
)

const defaultRedisTTL = 24 * time.Hour

// RedisStore keeps match state in redis: the seed as a string key, plies in
// a hash keyed by ply index, and the result once the match ends.
type RedisStore struct {
	rdb   *redis.Client
	ttl   time.Duration
	owned bool
}

// NewRedisClient connects to REDIS_URL and pings it.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisStore wraps an existing client. The caller keeps ownership of rdb.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// OpenRedisStore dials redisURL and returns a store that closes the client.
func OpenRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	rdb, err := NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	s := NewRedisStore(rdb, ttl)
	s.owned = true
	return s, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil || !s.owned {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) SaveSeed(ctx context.Context, seed domain.MatchSeed) error {
	raw, err := json.Marshal(seed)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, seedKey(seed.ID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("save seed %s: %w", seed.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errSeedExists, seed.ID)
	}
	return nil
}

func (s *RedisStore) LoadSeed(ctx context.Context, matchID string) (domain.MatchSeed, error) {
	var seed domain.MatchSeed
	raw, err := s.rdb.Get(ctx, seedKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return seed, fmt.Errorf("%w: %s", session.ErrMatchNotFound, matchID)
	}
	if err != nil {
		return seed, err
	}
	if err := json.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("decode seed %s: %w", matchID, err)
	}
	return seed, nil
}

// Append stores the ply under its index with HSETNX, so plies of one match
// never contend with each other. A replayed ply is accepted only when it
// carries the stored move.
func (s *RedisStore) Append(ctx context.Context, tr match.TransitionResult) error {
	raw, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	key := pliesKey(tr.MatchID)
	field := strconv.Itoa(tr.Ply)
	added, err := s.rdb.HSetNX(ctx, key, field, raw).Result()
	if err != nil {
		return fmt.Errorf("append %s ply %d: %w", tr.MatchID, tr.Ply, err)
	}
	if !added {
		prev, err := s.rdb.HGet(ctx, key, field).Bytes()
		if err != nil {
			return fmt.Errorf("read %s ply %d: %w", tr.MatchID, tr.Ply, err)
		}
		var stored match.TransitionResult
		if err := json.Unmarshal(prev, &stored); err != nil {
			return fmt.Errorf("decode %s ply %d: %w", tr.MatchID, tr.Ply, err)
		}
		if err := samePly(stored, tr); err != nil {
			return err
		}
	}
	pipe := s.rdb.Pipeline()
	pipe.Expire(ctx, key, s.ttl)
	pipe.Expire(ctx, seedKey(tr.MatchID), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) History(ctx context.Context, matchID string) ([]match.TransitionResult, error) {
	exists, err := s.rdb.Exists(ctx, seedKey(matchID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrMatchNotFound, matchID)
	}
	return s.plies(ctx, matchID)
}

func (s *RedisStore) plies(ctx context.Context, matchID string) ([]match.TransitionResult, error) {
	fields, err := s.rdb.HGetAll(ctx, pliesKey(matchID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]match.TransitionResult, 0, len(fields))
	for field, raw := range fields {
		var tr match.TransitionResult
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			return nil, fmt.Errorf("decode %s ply %s: %w", matchID, field, err)
		}
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ply < out[j].Ply })
	return out, nil
}

func (s *RedisStore) SaveResult(ctx context.Context, r domain.MatchResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, resultKey(r.MatchID), raw, s.ttl).Err()
}

func (s *RedisStore) result(ctx context.Context, matchID string) (*domain.MatchResult, error) {
	raw, err := s.rdb.Get(ctx, resultKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r domain.MatchResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", matchID, err)
	}
	return &r, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*match.Game, error) {
	seed, err := s.LoadSeed(ctx, id)
	if err != nil {
		return nil, err
	}
	plies, err := s.plies(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.result(ctx, id)
	if err != nil {
		return nil, err
	}
	return restoreGame(seed, plies, res)
}

func seedKey(id string) string   { return "match:" + strings.TrimSpace(id) + ":seed" }
func pliesKey(id string) string  { return "match:" + strings.TrimSpace(id) + ":plies" }
func resultKey(id string) string { return "match:" + strings.TrimSpace(id) + ":result" }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
