// Command eventlog tails the EVENTS JetStream stream and prints each turn and
// feedback event as it arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"query-responder-be/internal/config"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/events"
	pktNats "query-responder-be/pkg/nats"

	"github.com/fatih/color"
)

var (
	turnColor     = color.New(color.FgCyan, color.Bold)
	feedbackColor = color.New(color.FgGreen, color.Bold)
	otherColor    = color.New(color.FgYellow)
	fieldColor    = color.New(color.Faint)
)

func main() {
	durable := flag.String("durable", "", "durable consumer name; empty starts at new messages")
	subject := flag.String("subject", pktNats.SubjectPrefix+">", "subject filter")
	flag.Parse()

	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		log.Fatal("Error: NATS_URL is not set")
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, logger.NewNopLogger())
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sub.Subscribe(ctx, *subject, *durable, printEvent); err != nil {
		log.Fatalf("Error: Failed to subscribe: %v", err)
	}

	fmt.Printf("Listening on %s (%s)\n", *subject, cfg.App.NatsURL)
	<-ctx.Done()
}

func printEvent(ctx context.Context, e events.Event) error {
	c := otherColor
	switch e.EventType() {
	case events.TypeTurnCompleted:
		c = turnColor
	case events.TypeFeedbackRecorded:
		c = feedbackColor
	}

	at := e.Timestamp()
	if at.IsZero() {
		at = time.Now()
	}
	c.Printf("%s %s\n", at.Format(time.RFC3339), e.EventType())

	payload := e.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fieldColor.Printf("  %s=%v\n", k, payload[k])
	}
	return nil
}
