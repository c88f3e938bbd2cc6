package chessbuilder

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/config"
	"github.com/park285/Cheese-match-server/internal/pvpchess"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		HTTPAddr:               ":0",
		StateBackend:           config.BackendMemory,
		RedisTTL:               time.Hour,
		BroadcastChannelPrefix: "match:events:",
	}
}

func playFoolsMate(t *testing.T, d *Deps) string {
	t.Helper()
	ctx := context.Background()
	seed, _, err := d.Manager.CreateMatch(ctx, pvpchess.CreateMatchParams{WhiteID: "w", BlackID: "b"})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	sides := []chess.Color{chess.White, chess.Black}
	for i, mv := range []string{"f3", "e5", "g4", "Qh4#"} {
		if _, err := d.Manager.SubmitMove(ctx, seed.ID, sides[i%2], mv); err != nil {
			t.Fatalf("SubmitMove(%s): %v", mv, err)
		}
	}
	return seed.ID
}

func TestNewMemoryBackend(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Store.(*pvpchess.MemoryStore); !ok {
		t.Fatalf("store %T", d.Store)
	}
	if d.Relay != nil || d.Repo != nil || d.Webhook != nil {
		t.Fatalf("unexpected optional deps")
	}

	id := playFoolsMate(t, d)
	hist, err := d.Manager.History(context.Background(), id)
	if err != nil || len(hist) != 4 {
		t.Fatalf("History: %d %v", len(hist), err)
	}
}

func TestNewRedisBackendWiresRelay(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := baseConfig()
	cfg.StateBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Relay == nil {
		t.Fatalf("relay not wired")
	}
	id := playFoolsMate(t, d)
	if !mr.Exists("match:" + id + ":result") {
		t.Fatalf("result not stored in redis")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewBadgerInMemory(t *testing.T) {
	cfg := baseConfig()
	cfg.StateBackend = config.BackendBadger
	cfg.BadgerDir = pvpchess.InMemoryDir

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Store.(*pvpchess.BadgerStore); !ok {
		t.Fatalf("store %T", d.Store)
	}
	playFoolsMate(t, d)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := baseConfig()
	cfg.StateBackend = config.BackendRedis
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error")
	}
}
