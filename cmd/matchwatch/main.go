package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/Cheese-match-server/internal/spectator"
)

// matchwatch checks a running matchd and, when MATCH_ID is set, prints the
// match's spectator stream for WATCH_FOR.
func main() {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("MATCHD_URL")), "/")
	matchID := strings.TrimSpace(os.Getenv("MATCH_ID"))
	if baseURL == "" {
		log.Fatal("MATCHD_URL is required")
	}
	watchFor := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("WATCH_FOR")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("WATCH_FOR: %v", err)
		}
		watchFor = d
	}

	status, body, err := fasthttp.GetTimeout(nil, baseURL+"/healthz", 5*time.Second)
	if err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Printf("/healthz status=%d body=%q", status, body)

	if matchID == "" {
		log.Println("MATCH_ID not set; skipping stream check")
		return
	}

	w := spectator.NewWatcher(baseURL, matchID,
		spectator.OnState(func(s spectator.State) { log.Printf("stream state: %s", s) }),
		spectator.OnMessage(func(m spectator.Message) {
			if m.Type == "" {
				fmt.Printf("details %s\n", m.Raw)
				return
			}
			fmt.Printf("%-11s %s\n", m.Type, m.Summary)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), watchFor)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		log.Fatalf("stream error: %v", err)
	}
}
