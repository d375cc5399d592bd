// Package events defines the market's notification events and the sink contract
// that delivers them. Delivery is fire-and-forget: a sink never fails a market operation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Type is the kind of market event
type Type string

const (
	TypeBidPlaced         Type = "BidPlaced"
	TypeBidOutbid         Type = "BidOutbid"
	TypeBidWon            Type = "BidWon"
	TypeBidLost           Type = "BidLost"
	TypeAuctionUnresolved Type = "AuctionUnresolved"
	TypeWaiverPlaced      Type = "WaiverPlaced"
	TypeClaimSubmitted    Type = "ClaimSubmitted"
	TypeWaiverAwarded     Type = "WaiverAwarded"
	TypeWaiverCleared     Type = "WaiverCleared"
	TypeClaimRejected     Type = "ClaimRejected"
)

// Event is one market notification
type Event struct {
	ID   uuid.UUID `json:"id"`
	Type Type      `json:"type"`
	// SubjectID is the player for auction events and the waiver for waiver events.
	SubjectID uuid.UUID `json:"subject_id"`
	// TeamIDs are the teams the event concerns; empty means league-wide.
	TeamIDs   []uuid.UUID     `json:"team_ids,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New builds an event with a JSON-encoded payload
func New(t Type, subjectID uuid.UUID, at time.Time, payload interface{}, teamIDs ...uuid.UUID) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{
		ID:        uuid.New(),
		Type:      t,
		SubjectID: subjectID,
		TeamIDs:   teamIDs,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Concerns reports whether the event is addressed to teamID
func (e Event) Concerns(teamID uuid.UUID) bool {
	if len(e.TeamIDs) == 0 {
		return true
	}
	for _, id := range e.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// Batch collects events inside a transaction so they can be published after commit
type Batch []Event

// Add appends an event, logging and skipping it if the payload cannot be encoded
func (b *Batch) Add(t Type, subjectID uuid.UUID, at time.Time, payload interface{}, teamIDs ...uuid.UUID) {
	e, err := New(t, subjectID, at, payload, teamIDs...)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("dropping event")
		return
	}
	*b = append(*b, e)
}

// Sink receives committed market events
type Sink interface {
	Publish(ctx context.Context, events ...Event)
}

// Fanout delivers every event to each sink in order
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	for _, s := range f {
		s.Publish(ctx, events...)
	}
}

// Discard drops all events
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) {}

// Collector keeps published events in memory
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Publish(_ context.Context, events ...Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

// Events returns a copy of everything published so far
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfType returns the published events of type t
func (c *Collector) OfType(t Type) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
