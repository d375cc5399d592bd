package outbox

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/events"
)

// MemoryRepository is the outbox used with the in-memory store
type MemoryRepository struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	events map[uuid.UUID]*OutboxEvent
}

func NewMemoryRepository(clock clockwork.Clock) *MemoryRepository {
	return &MemoryRepository{
		clock:  clock,
		events: make(map[uuid.UUID]*OutboxEvent),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Insert(_ context.Context, event events.Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = &OutboxEvent{
		ID:        event.ID,
		EventType: string(event.Type),
		SubjectID: event.SubjectID,
		Payload:   payload,
		CreatedAt: r.clock.Now(),
	}
	return nil
}

func (r *MemoryRepository) Drain(ctx context.Context, limit int, fn func(ctx context.Context, event OutboxEvent) error) (DrainResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*OutboxEvent, 0, len(r.events))
	for _, e := range r.events {
		if e.SentAt == nil {
			pending = append(pending, e)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID.String() < pending[j].ID.String()
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	res := DrainResult{Fetched: len(pending)}
	for _, e := range pending {
		if r.deliver(ctx, e, fn) {
			res.Sent++
		} else {
			res.Failed++
		}
	}
	return res, nil
}

func (r *MemoryRepository) DrainOne(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, event OutboxEvent) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.SentAt != nil {
		return false, nil
	}
	return r.deliver(ctx, e, fn), nil
}

func (r *MemoryRepository) CountPending(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.events {
		if e.SentAt == nil {
			n++
		}
	}
	return n, nil
}

// Sent returns the relayed events
func (r *MemoryRepository) Sent() []OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []OutboxEvent
	for _, e := range r.events {
		if e.SentAt != nil {
			out = append(out, *e)
		}
	}
	return out
}

func (r *MemoryRepository) deliver(ctx context.Context, e *OutboxEvent, fn func(ctx context.Context, event OutboxEvent) error) bool {
	e.Attempts++
	if err := fn(ctx, *e); err != nil {
		e.LastError = err.Error()
		return false
	}
	now := r.clock.Now()
	e.SentAt = &now
	e.LastError = ""
	return true
}
