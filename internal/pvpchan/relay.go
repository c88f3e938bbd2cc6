package pvpchan

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-match-server/internal/pvpchess"
)

const DefaultChannelPrefix = "match:events:"

// RedisRelay carries match events between nodes over Redis pub/sub. Every
// node publishes through the relay and runs it to feed its local Hub, so
// spectators of a match can connect to any node. Moves for one match must
// still be routed to a single node; a node that falls behind stored history
// gets pvpchess.ErrPlyConflict and reloads.
type RedisRelay struct {
	rdb    *redis.Client
	prefix string
	hub    *Hub
	logger *zap.Logger
}

func NewRedisRelay(rdb *redis.Client, prefix string, hub *Hub, logger *zap.Logger) (*RedisRelay, error) {
	if rdb == nil {
		return nil, ErrNilRedis
	}
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{rdb: rdb, prefix: prefix, hub: hub, logger: logger}, nil
}

func (r *RedisRelay) channel(matchID string) string { return r.prefix + matchID }

// Publish implements pvpchess.Broadcaster.
func (r *RedisRelay) Publish(ctx context.Context, ev pvpchess.Event) error {
	if ev.MatchID == "" {
		return ErrNoMatchID
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel(ev.MatchID), raw).Err()
}

// Run forwards relayed events to the local hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	ps := r.rdb.PSubscribe(ctx, r.prefix+"*")
	defer ps.Close()

	// wait for the subscription to be confirmed before reporting ready
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("relay_subscribed", zap.String("pattern", r.prefix+"*"))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			matchID := strings.TrimPrefix(msg.Channel, r.prefix)
			if r.hub == nil || matchID == "" {
				continue
			}
			if err := r.hub.Deliver(matchID, []byte(msg.Payload)); err != nil {
				r.logger.Warn("relay_deliver_error", zap.String("match_id", matchID), zap.Error(err))
				if errors.Is(err, ErrHubClosed) {
					return nil
				}
			}
		}
	}
}
