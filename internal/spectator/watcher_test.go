package spectator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/pvpchan"
	"github.com/park285/Cheese-match-server/internal/pvpchess"
)

type recorder struct {
	mu     sync.Mutex
	msgs   []Message
	states []State
	got    chan Message
}

func newRecorder() *recorder { return &recorder{got: make(chan Message, 16)} }

func (r *recorder) message(m Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
	r.got <- m
}

func (r *recorder) state(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) sawState(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.states {
		if st == s {
			return true
		}
	}
	return false
}

func newStreamServer(t *testing.T, hub *pvpchan.Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeMatch(w, r, strings.TrimPrefix(r.URL.Path, "/ws/matches/"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitMessage(t *testing.T, r *recorder) Message {
	t.Helper()
	select {
	case m := <-r.got:
		return m
	case <-time.After(3 * time.Second):
		t.Fatalf("no message received")
	}
	return Message{}
}

func TestWatcherReceivesGreetingAndEvents(t *testing.T) {
	hub := pvpchan.NewHub(pvpchan.WithGreeting(func(ctx context.Context, id string) (any, error) {
		return map[string]string{"matchId": id}, nil
	}))
	defer hub.Close()
	srv := newStreamServer(t, hub)

	rec := newRecorder()
	w := NewWatcher(srv.URL, "m1", OnMessage(rec.message), OnState(rec.state))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if greet := waitMessage(t, rec); greet.Type != "" || !strings.Contains(string(greet.Raw), `"matchId":"m1"`) {
		t.Fatalf("greeting %+v raw=%s", greet, greet.Raw)
	}
	if w.State() != StateConnected {
		t.Fatalf("state %s", w.State())
	}

	err := hub.Publish(context.Background(), pvpchess.Event{Type: pvpchess.EventMove, MatchID: "m1", Side: chess.White, Summary: "White played e4."})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ev := waitMessage(t, rec); ev.Type != "move" || ev.MatchID != "m1" || ev.Summary != "White played e4." {
		t.Fatalf("event %+v", ev)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if w.State() != StateDisconnected {
		t.Fatalf("state after cancel %s", w.State())
	}
}

func TestWatcherGivesUpAfterReconnects(t *testing.T) {
	hub := pvpchan.NewHub(pvpchan.WithGreeting(func(ctx context.Context, id string) (any, error) {
		return map[string]string{"matchId": id}, nil
	}))
	srv := newStreamServer(t, hub)

	rec := newRecorder()
	w := NewWatcher(srv.URL, "m1", WithMaxReconnect(1), OnMessage(rec.message), OnState(rec.state))
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	waitMessage(t, rec)

	// a closed hub refuses every reconnect
	hub.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected an error once reconnects were exhausted")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not give up")
	}
	if w.State() != StateFailed || !rec.sawState(StateReconnecting) {
		t.Fatalf("state %s, states %v", w.State(), rec.states)
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(0) != 200*time.Millisecond || backoffDuration(2) != 400*time.Millisecond {
		t.Fatalf("unexpected backoff")
	}
	if backoffDuration(30) != 5*time.Second {
		t.Fatalf("backoff not capped")
	}
}
