package spectator

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Message is one frame of the spectator stream. The greeting carries match
// details and has no Type; events carry a Type such as "move" or "resign".
type Message struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id"`
	Summary string          `json:"summary"`
	Raw     json.RawMessage `json:"-"`
}

type (
	MessageHandler func(Message)
	StateHandler   func(State)
)

// Watcher follows one match's spectator stream and reconnects with backoff
// when the connection drops.
type Watcher struct {
	url          string
	maxReconnect int
	headers      http.Header
	onMessage    MessageHandler
	onState      StateHandler
	logger       *zap.Logger

	mu    sync.RWMutex
	state State
}

type Option func(*Watcher)

func WithMaxReconnect(n int) Option { return func(w *Watcher) { w.maxReconnect = n } }
func OnMessage(fn MessageHandler) Option { return func(w *Watcher) { w.onMessage = fn } }
func OnState(fn StateHandler) Option { return func(w *Watcher) { w.onState = fn } }

// WithHeader adds a handshake header, e.g. an auth token in front of the service.
func WithHeader(k, v string) Option {
	return func(w *Watcher) {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			w.headers.Set(k, v)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher targets baseURL's stream for matchID; baseURL may use the
// http(s) or ws(s) scheme.
func NewWatcher(baseURL, matchID string, opts ...Option) *Watcher {
	w := &Watcher{
		url:          strings.TrimRight(baseURL, "/") + "/ws/matches/" + matchID,
		maxReconnect: 5,
		headers:      http.Header{},
		logger:       zap.NewNop(),
		state:        StateDisconnected,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Run streams until ctx is done, the server closes normally, or reconnects
// are exhausted. Only the last case returns an error.
func (w *Watcher) Run(ctx context.Context) error {
	attempt := 0
	for {
		received, err := w.session(ctx)
		if ctx.Err() != nil {
			w.setState(StateDisconnected)
			return nil
		}
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			w.setState(StateDisconnected)
			return nil
		}
		// a stream that delivered something counts as recovered
		if received {
			attempt = 0
		}
		attempt++
		if attempt > w.maxReconnect {
			w.setState(StateFailed)
			return err
		}
		w.setState(StateReconnecting)
		w.logger.Warn("spectator_reconnect", zap.String("url", w.url), zap.Int("attempt", attempt), zap.Error(err))
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			w.setState(StateDisconnected)
			return nil
		}
	}
}

func (w *Watcher) session(ctx context.Context) (bool, error) {
	w.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, _, err := websocket.Dial(dialCtx, w.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      w.headers.Clone(),
	})
	cancel()
	if err != nil {
		return false, err
	}
	defer c.CloseNow()
	w.setState(StateConnected)

	received := false
	for {
		_, raw, err := c.Read(ctx)
		if err != nil {
			return received, err
		}
		received = true
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			w.logger.Debug("spectator_bad_frame", zap.Error(err))
			continue
		}
		msg.Raw = raw
		if w.onMessage != nil {
			w.onMessage(msg)
		}
	}
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	changed := w.state != s
	w.state = s
	w.mu.Unlock()
	if changed && w.onState != nil {
		w.onState(s)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 200 * time.Millisecond << (attempt - 1)
	if d > 5*time.Second || d <= 0 {
		return 5 * time.Second
	}
	return d
}
