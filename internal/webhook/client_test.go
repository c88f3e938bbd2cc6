package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
)

func TestAppendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if !Verify([]byte("s3cret"), b, r.Header.Get(SignatureHeader)) {
			t.Errorf("bad signature %q", r.Header.Get(SignatureHeader))
		}
		if r.Header.Get(EventHeader) != string(KindPly) {
			t.Errorf("event header %q", r.Header.Get(EventHeader))
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body.Store(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithSecret("s3cret"), WithRetry(3), WithTimeout(time.Second))
	tr := match.TransitionResult{MatchID: "m1", Ply: 0, SAN: "e4", UCI: "e2e4"}
	if err := c.Append(context.Background(), tr); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d", calls.Load())
	}

	var env Envelope
	if err := json.Unmarshal(body.Load().([]byte), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var got match.TransitionResult
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if env.Kind != KindPly || env.MatchID != "m1" || got.UCI != "e2e4" {
		t.Fatalf("envelope %+v data %+v", env, got)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(5))
	err := c.SaveResult(context.Background(), domain.MatchResult{MatchID: "m1"})
	if err == nil || !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestRetriesGiveUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(2))
	if err := c.Append(context.Background(), match.TransitionResult{MatchID: "m1"}); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestSignVerify(t *testing.T) {
	sig := Sign([]byte("k"), []byte("payload"))
	if !strings.HasPrefix(sig, "sha256=") || !Verify([]byte("k"), []byte("payload"), sig) {
		t.Fatalf("sig %q did not verify", sig)
	}
	if Verify([]byte("k"), []byte("tampered"), sig) {
		t.Fatalf("tampered payload verified")
	}
}

func TestMaxConnsPerHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithMaxConnsPerHost(2))
	if c.http.MaxConnsPerHost != 2 {
		t.Fatalf("MaxConnsPerHost = %d", c.http.MaxConnsPerHost)
	}
	for ply := 0; ply < 3; ply++ {
		if err := c.Append(context.Background(), match.TransitionResult{MatchID: "m1", Ply: ply}); err != nil {
			t.Fatalf("Append(%d): %v", ply, err)
		}
	}
	if d := NewClient(srv.URL, WithMaxConnsPerHost(0)); d.http.MaxConnsPerHost != 64 {
		t.Fatalf("zero overrode the default: %d", d.http.MaxConnsPerHost)
	}
}
