package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
)

const (
	SignatureHeader = "X-Cheese-Signature"
	EventHeader     = "X-Cheese-Event"
)

// Kind tags the payload posted to the webhook.
type Kind string

const (
	KindPly    Kind = "ply"
	KindResult Kind = "result"
)

// Envelope is the JSON body of every delivery.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	MatchID string          `json:"match_id"`
	SentAt  time.Time       `json:"sent_at"`
	Data    json.RawMessage `json:"data"`
}

// Client posts plies and results to an external endpoint. It is both a
// history sink and a result sink, and retries 5xx responses with backoff.
type Client struct {
	url    string
	http   *fasthttp.Client
	secret []byte

	defaultTimeout time.Duration
	retryMax       int
	now            func() time.Time
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithSecret enables the HMAC-SHA256 signature header.
func WithSecret(secret string) Option {
	return func(c *Client) {
		if s := strings.TrimSpace(secret); s != "" {
			c.secret = []byte(s)
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.http.MaxConnsPerHost = n
		}
	}
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:            strings.TrimSpace(url),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Append(ctx context.Context, tr match.TransitionResult) error {
	return c.deliver(ctx, KindPly, tr.MatchID, tr)
}

func (c *Client) SaveResult(ctx context.Context, r domain.MatchResult) error {
	return c.deliver(ctx, KindResult, r.MatchID, r)
}

func (c *Client) deliver(ctx context.Context, kind Kind, matchID string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	body, err := json.Marshal(Envelope{Kind: kind, MatchID: matchID, SentAt: c.now().UTC(), Data: raw})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return c.post(ctx, kind, body)
}

func (c *Client) post(ctx context.Context, kind Kind, payload []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")
	req.Header.Set(EventHeader, string(kind))
	if len(c.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(c.secret, payload))
	}
	req.SetBody(payload)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("webhook request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = fmt.Errorf("webhook error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			return nil
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// Sign returns the signature header value for payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value in constant time.
func Verify(secret, payload []byte, header string) bool {
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(strings.TrimSpace(header)))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
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
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
