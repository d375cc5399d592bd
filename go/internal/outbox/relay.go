package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type RelayConfig struct {
	FallbackInterval time.Duration
	BatchSize        int
	MaxRetries       int
	RetryDelay       time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		FallbackInterval: 30 * time.Second,
		BatchSize:        100,
		MaxRetries:       3,
		RetryDelay:       200 * time.Millisecond,
	}
}

// Relay moves outbox events to the broker
type Relay struct {
	repo      Repository
	publisher EventPublisher
	metrics   MetricsCollector
	clock     clockwork.Clock
	cfg       RelayConfig
}

func NewRelay(repo Repository, publisher EventPublisher, metrics MetricsCollector, clock clockwork.Clock, cfg RelayConfig) *Relay {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		clock:     clock,
		cfg:       cfg,
	}
}

// Run relays until ctx is done. notes carries event ids from a NOTIFY listener and may
// be nil, in which case the relay only polls.
func (r *Relay) Run(ctx context.Context, notes <-chan string) error {
	log.Info().
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Int("batch_size", r.cfg.BatchSize).
		Msg("outbox relay started")

	ticker := r.clock.NewTicker(r.cfg.FallbackInterval)
	defer ticker.Stop()

	// catch up on anything written while we were down
	r.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay shutting down")
			return nil
		case id, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			if err := r.HandleNotification(ctx, id); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-ticker.Chan():
			r.poll(ctx)
		}
	}
}

func (r *Relay) poll(ctx context.Context) {
	if _, err := r.ProcessUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}
}

// HandleNotification relays the event whose id arrived on the NOTIFY channel
func (r *Relay) HandleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}
	sent, err := r.repo.DrainOne(ctx, id, r.publishWithRetry)
	if err != nil {
		return fmt.Errorf("failed to relay event %s: %w", id, err)
	}
	if sent {
		log.Debug().Str("event_id", id.String()).Msg("published and marked event as sent")
	}
	return nil
}

// ProcessUnsent relays one batch of unsent events
func (r *Relay) ProcessUnsent(ctx context.Context) (DrainResult, error) {
	start := r.clock.Now()
	res, err := r.repo.Drain(ctx, r.cfg.BatchSize, r.publishWithRetry)
	if err != nil {
		return res, err
	}
	r.metrics.RecordBatchProcessed(res.Fetched, r.clock.Since(start))

	if pending, err := r.repo.CountPending(ctx); err == nil {
		r.metrics.RecordOutboxLag(int(pending))
	}
	if res.Fetched > 0 {
		log.Info().
			Int("total", res.Fetched).
			Int("successful", res.Sent).
			Int("failed", res.Failed).
			Msg("processed outbox events")
	}
	return res, nil
}

func (r *Relay) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			r.metrics.RecordPublishAttempt(event.EventType, attempt+1, false)
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}
		r.metrics.RecordPublishAttempt(event.EventType, attempt+1, true)
		return nil
	}
	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
