package events

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/logger"
)

const defaultBatchSize = 100

// Poller drains the outbox on a ticker. An event that fails to publish
// stays queued and is retried on the next tick.
type Poller struct {
	outbox    Outbox
	publisher Publisher
	eventTick time.Duration
	batchSize int
}

func NewPoller(outbox Outbox, publisher Publisher, tick time.Duration) *Poller {
	if tick <= 0 {
		tick = time.Second
	}
	return &Poller{
		outbox:    outbox,
		publisher: publisher,
		eventTick: tick,
		batchSize: defaultBatchSize,
	}
}

// Run blocks until ctx is cancelled, then makes a final pass so events
// queued during shutdown are not left behind.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			p.processUnpublishedEvents(flushCtx)
			cancel()
			return
		}
	}
}

func (p *Poller) processUnpublishedEvents(ctx context.Context) int {
	log := logger.FromContext(ctx)

	events, err := p.outbox.Unprocessed(ctx, p.batchSize)
	if err != nil {
		log.Error("failed to fetch events", "error", err)
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publisher.Publish(ctx, event); err != nil {
			log.Error("failed to publish event", "event_id", event.ID, "error", err)
			continue
		}
		if err := p.outbox.MarkProcessed(ctx, event.ID); err != nil {
			log.Error("failed to mark event as processed", "event_id", event.ID, "error", err)
			continue
		}
		published++
	}
	return published
}
