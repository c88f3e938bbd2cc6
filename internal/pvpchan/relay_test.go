package pvpchan

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/pvpchess"
)

func TestRelayRequiresClient(t *testing.T) {
	if _, err := NewRedisRelay(nil, "", NewHub(), nil); err != ErrNilRedis {
		t.Fatalf("err = %v", err)
	}
}

func TestRelayCarriesEventsToRemoteHub(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	// two nodes sharing one redis: the publisher has no spectators
	pubClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	subClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer pubClient.Close()
	defer subClient.Close()

	remote := NewHub(WithGreeting(greetHello))
	defer remote.Close()
	srv := newHubServer(t, remote)

	sender, err := NewRedisRelay(pubClient, "", NewHub(), nil)
	if err != nil {
		t.Fatalf("NewRedisRelay: %v", err)
	}
	receiver, err := NewRedisRelay(subClient, "", remote, nil)
	if err != nil {
		t.Fatalf("NewRedisRelay: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- receiver.Run(ctx) }()

	c := dialMatch(t, ctx, srv, "m9")
	var hello wireEvent
	if err := wsjson.Read(ctx, c, &hello); err != nil {
		t.Fatalf("greeting: %v", err)
	}

	ev := pvpchess.Event{Type: pvpchess.EventDrawOffer, MatchID: "m9", Side: chess.White}
	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumPat() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := sender.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var got wireEvent
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "draw_offer" || got.MatchID != "m9" || got.Side != "white" {
		t.Fatalf("unexpected event %+v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop")
	}
}
