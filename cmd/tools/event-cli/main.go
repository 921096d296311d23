package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/fractal-terrain/internal/eventbus"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		natsURL    = flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
		stream     = flag.String("stream", "TERRAIN", "JetStream stream name")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Sources filter (comma-separated)")
		limit      = flag.Int("limit", 0, "Stop after N events (0 = follow forever)")
		raw        = flag.Bool("json", false, "Print full envelopes as JSON")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan *eventbus.Envelope, 64)
	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		log.Fatalf("❌ Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(os.Stderr, "📡 Tailing %s on %s\n", *stream, *natsURL)

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			printEvent(ev, *raw)
			seen++
			if *limit > 0 && seen >= *limit {
				return
			}
		}
	}
}

func printEvent(ev *eventbus.Envelope, raw bool) {
	if raw {
		data, _ := json.Marshal(ev)
		fmt.Println(string(data))
		return
	}
	fmt.Printf("%s %-18s %-16s %s\n", ev.Timestamp.Format(timeFormat), ev.EventType, ev.Source, ev.Payload)
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
