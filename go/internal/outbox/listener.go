package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// NotifyChannel is the channel the market_outbox insert trigger notifies on
const NotifyChannel = "market_outbox_events"

// Listener turns Postgres NOTIFY messages on the outbox channel into event ids
type Listener struct {
	listener     *pq.Listener
	pingInterval time.Duration
}

func NewListener(databaseURL string, pingInterval time.Duration) (*Listener, error) {
	l := pq.NewListener(
		databaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}
	log.Info().Str("channel", NotifyChannel).Msg("listening for notifications")
	return &Listener{listener: l, pingInterval: pingInterval}, nil
}

// Notes forwards notification payloads until ctx is done, then closes the listener
func (l *Listener) Notes(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		defer l.listener.Close()

		ping := time.NewTicker(l.pingInterval)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-l.listener.Notify:
				// nil means the connection was re-established; the relay's poll catches up
				if note == nil {
					continue
				}
				select {
				case out <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-ping.C:
				if err := l.listener.Ping(); err != nil {
					log.Error().Err(err).Msg("failed to ping listener")
				}
			}
		}
	}()
	return out
}
