package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-match-server/internal/config"
	"github.com/park285/Cheese-match-server/internal/httpapi"
	"github.com/park285/Cheese-match-server/internal/msgcat"
	"github.com/park285/Cheese-match-server/internal/pvpchan"
	"github.com/park285/Cheese-match-server/internal/pvpchess"
	"github.com/park285/Cheese-match-server/internal/session"
	"github.com/park285/Cheese-match-server/internal/webhook"
)

// Deps is the wired match service. Close releases everything New opened.
type Deps struct {
	Store   pvpchess.Store
	Coord   *session.Coordinator
	Manager *pvpchess.Manager
	Hub     *pvpchan.Hub
	Relay   *pvpchan.RedisRelay
	Repo    *pvpchess.Repository
	Webhook *webhook.Client
	Catalog *msgcat.Catalog
	API     *httpapi.Server

	closers []func() error
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (_ *Deps, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Deps{}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	if d.Catalog, err = msgcat.New(cfg.MessagesDir); err != nil {
		return nil, fmt.Errorf("init message catalog: %w", err)
	}

	var rdb *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		if rdb, err = pvpchess.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.closers = append(d.closers, rdb.Close)
	}

	switch cfg.StateBackend {
	case config.BackendRedis:
		if rdb == nil {
			return nil, errors.New("REDIS_URL is required")
		}
		d.Store = pvpchess.NewRedisStore(rdb, cfg.RedisTTL)
	case config.BackendBadger:
		bs, berr := pvpchess.OpenBadgerStore(cfg.BadgerDir)
		if berr != nil {
			return nil, fmt.Errorf("init badger: %w", berr)
		}
		d.Store = bs
	default:
		d.Store = pvpchess.NewMemoryStore()
	}
	d.closers = append(d.closers, d.Store.Close)
	logger.Info("state_backend", zap.String("backend", cfg.StateBackend))

	opts := []pvpchess.Option{
		pvpchess.WithLogger(logger.Named("match")),
		pvpchess.WithCatalog(d.Catalog),
		pvpchess.WithHistorySinks(d.Store),
		pvpchess.WithResultSinks(d.Store),
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		if d.Repo, err = pvpchess.NewRepository(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		d.closers = append(d.closers, d.Repo.Close)
		if err = d.Repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		opts = append(opts,
			pvpchess.WithHistorySinks(d.Repo),
			pvpchess.WithResultSinks(d.Repo),
			pvpchess.WithArchive(d.Repo),
		)
	}

	if strings.TrimSpace(cfg.WebhookURL) != "" {
		d.Webhook = webhook.NewClient(cfg.WebhookURL,
			webhook.WithTimeout(cfg.WebhookTimeout),
			webhook.WithRetry(cfg.WebhookRetry),
			webhook.WithSecret(cfg.WebhookSecret),
			webhook.WithMaxConnsPerHost(cfg.WebhookMaxConns),
		)
		opts = append(opts, pvpchess.WithHistorySinks(d.Webhook), pvpchess.WithResultSinks(d.Webhook))
	}

	// the hub greets spectators with match details, so it needs the manager
	var mgr *pvpchess.Manager
	d.Hub = pvpchan.NewHub(
		pvpchan.WithOrigins(cfg.WSOrigins),
		pvpchan.WithPingInterval(cfg.WSPingInterval),
		pvpchan.WithHubLogger(logger.Named("spectators")),
		pvpchan.WithGreeting(func(ctx context.Context, matchID string) (any, error) {
			return mgr.Details(ctx, matchID)
		}),
	)
	d.closers = append(d.closers, func() error { d.Hub.Close(); return nil })

	var bcast pvpchess.Broadcaster = d.Hub
	if rdb != nil {
		if d.Relay, err = pvpchan.NewRedisRelay(rdb, cfg.BroadcastChannelPrefix, d.Hub, logger.Named("relay")); err != nil {
			return nil, err
		}
		bcast = d.Relay
	}
	opts = append(opts, pvpchess.WithBroadcaster(bcast))

	d.Coord = session.New(d.Store)
	mgr = pvpchess.NewManager(d.Coord, d.Store, opts...)
	d.Manager = mgr

	d.API = httpapi.NewServer(mgr,
		httpapi.WithSpectators(d.Hub),
		httpapi.WithCatalog(d.Catalog),
		httpapi.WithCORSOrigins(cfg.CORSOrigins),
		httpapi.WithLogger(logger.Named("http")),
	)
	return d, nil
}

// Close releases resources in reverse order of acquisition.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
