package pvpchan

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/Cheese-match-server/internal/pvpchess"
)

// GreetingFunc produces the first message a new spectator receives,
// typically the current match details.
type GreetingFunc func(ctx context.Context, matchID string) (any, error)

type subscriber struct {
	matchID string
	send    chan []byte
}

// Hub fans match events out to websocket spectators. A slow spectator's
// queue fills up and further messages to it are dropped; the match never
// waits on a spectator.
type Hub struct {
	origins      []string
	pingInterval time.Duration
	writeTimeout time.Duration
	sendBuffer   int
	greet        GreetingFunc
	logger       *zap.Logger

	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

type HubOption func(*Hub)

// WithOrigins sets the Origin host patterns accepted on upgrade.
func WithOrigins(patterns []string) HubOption {
	return func(h *Hub) {
		for _, p := range patterns {
			if p = strings.TrimSpace(p); p != "" {
				h.origins = append(h.origins, p)
			}
		}
	}
}

func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

func WithGreeting(fn GreetingFunc) HubOption {
	return func(h *Hub) { h.greet = fn }
}

func WithHubLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		pingInterval: 15 * time.Second,
		writeTimeout: 5 * time.Second,
		sendBuffer:   64,
		logger:       zap.NewNop(),
		subs:         make(map[string]map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish implements pvpchess.Broadcaster for single-node deployments.
func (h *Hub) Publish(ctx context.Context, ev pvpchess.Event) error {
	if ev.MatchID == "" {
		return ErrNoMatchID
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.Deliver(ev.MatchID, raw)
}

// Deliver queues an encoded event for every spectator of matchID.
func (h *Hub) Deliver(matchID string, raw []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for s := range h.subs[matchID] {
		select {
		case s.send <- raw:
		default:
			h.logger.Debug("spectator_drop", zap.String("match_id", matchID))
		}
	}
	return nil
}

// Subscribers reports the number of spectators of matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[matchID])
}

// ServeMatch upgrades the request and streams matchID's events until the
// client goes away or the hub closes.
func (h *Hub) ServeMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Debug("spectator_accept_error", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	defer c.CloseNow()

	sub, err := h.add(matchID)
	if err != nil {
		_ = c.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(sub)
	h.logger.Info("spectator_join", zap.String("match_id", matchID))

	// spectators only listen; CloseRead handles control frames
	ctx := c.CloseRead(r.Context())

	if h.greet != nil {
		if v, err := h.greet(ctx, matchID); err == nil {
			if raw, err := json.Marshal(v); err == nil {
				if err := h.write(ctx, c, raw); err != nil {
					return
				}
			}
		}
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("spectator_leave", zap.String("match_id", matchID))
			return
		case raw, ok := <-sub.send:
			if !ok {
				_ = c.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := h.write(ctx, c, raw); err != nil {
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, c *websocket.Conn, raw []byte) error {
	wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, raw)
}

func (h *Hub) add(matchID string) (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	s := &subscriber{matchID: matchID, send: make(chan []byte, h.sendBuffer)}
	set, ok := h.subs[matchID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[matchID] = set
	}
	set[s] = struct{}{}
	return s, nil
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[s.matchID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.send)
	if len(set) == 0 {
		delete(h.subs, s.matchID)
	}
}

// Close disconnects every spectator. Later publishes fail with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, set := range h.subs {
		for s := range set {
			close(s.send)
		}
		delete(h.subs, id)
	}
}
