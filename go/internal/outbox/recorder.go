package outbox

import (
	"context"

	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Recorder is an events.Sink that writes every committed event to the outbox
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

var _ events.Sink = (*Recorder)(nil)

// Publish stores the events. Failures are logged; the market operation that produced
// them has already committed.
func (r *Recorder) Publish(ctx context.Context, evs ...events.Event) {
	for _, e := range evs {
		if err := r.repo.Insert(ctx, e); err != nil {
			log.Error().
				Err(err).
				Str("event_id", e.ID.String()).
				Str("event_type", string(e.Type)).
				Msg("failed to record outbox event")
			continue
		}
		log.Debug().
			Str("event_id", e.ID.String()).
			Str("event_type", string(e.Type)).
			Str("subject_id", e.SubjectID.String()).
			Msg("outbox event inserted")
	}
}
