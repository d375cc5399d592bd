// Package sweep drives the auction and waiver resolvers off the clock. The Scheduler
// sleeps until the store's next deadline (or until woken by a new bid or waiver), then
// hands every due player and waiver to a pool of workers.
package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/auction"
	"github.com/mcdev12/dynasty-market/go/internal/metrics"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/mcdev12/dynasty-market/go/internal/waiver"
	"github.com/rs/zerolog/log"
)

type AuctionResolver interface {
	ResolvePlayer(ctx context.Context, playerID uuid.UUID, now time.Time) (auction.Result, error)
	Sweep(ctx context.Context, now time.Time) ([]auction.Result, error)
}

type WaiverResolver interface {
	ResolveWaiver(ctx context.Context, waiverID uuid.UUID, now time.Time) (waiver.Result, error)
	Sweep(ctx context.Context, now time.Time) ([]waiver.Result, error)
}

type Config struct {
	Workers int
	// BatchSize caps how many due players and waivers are claimed per pass.
	BatchSize int
	// IdlePoll is the longest the scheduler sleeps, so deadlines written by other
	// instances are picked up.
	IdlePoll time.Duration
	// MinInterval spaces passes while due work is still in flight.
	MinInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:     8,
		BatchSize:   100,
		IdlePoll:    30 * time.Second,
		MinInterval: 250 * time.Millisecond,
	}
}

type jobKind string

const (
	jobAuction jobKind = "auction"
	jobWaiver  jobKind = "waiver"
)

type job struct {
	kind jobKind
	id   uuid.UUID
}

type Scheduler struct {
	store    store.Store
	auctions AuctionResolver
	waivers  WaiverResolver
	clock    clockwork.Clock
	metrics  *metrics.Market
	cfg      Config

	wakeCh chan struct{}
	workCh chan job

	inFlight   map[job]bool
	inFlightMu sync.Mutex
}

func NewScheduler(st store.Store, auctions AuctionResolver, waivers WaiverResolver, clock clockwork.Clock, m *metrics.Market, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		store:    st,
		auctions: auctions,
		waivers:  waivers,
		clock:    clock,
		metrics:  m,
		cfg:      cfg,
		wakeCh:   make(chan struct{}, 1),
		workCh:   make(chan job, cfg.Workers*2),
		inFlight: make(map[job]bool),
	}
}

// Wake makes the scheduler re-read the next deadline. It never blocks.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run schedules sweeps until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().
		Int("workers", s.cfg.Workers).
		Dur("idle_poll", s.cfg.IdlePoll).
		Msg("sweep scheduler started")

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i)
	}
	defer func() {
		wg.Wait()
		log.Info().Msg("sweep scheduler stopped")
	}()

	for {
		if err := s.enqueueDue(ctx); err != nil {
			log.Error().Err(err).Msg("failed to enqueue due work")
		}

		wait := s.nextWait(ctx)
		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.wakeCh:
			timer.Stop()
		case <-timer.Chan():
		}
	}
}

// nextWait returns how long to sleep before the next pass
func (s *Scheduler) nextWait(ctx context.Context) time.Duration {
	next, err := s.store.NextDeadline(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read next deadline")
		return s.cfg.IdlePoll
	}
	if next == nil {
		return s.cfg.IdlePoll
	}
	wait := next.Sub(s.clock.Now())
	if wait < s.cfg.MinInterval {
		wait = s.cfg.MinInterval
	}
	if wait > s.cfg.IdlePoll {
		wait = s.cfg.IdlePoll
	}
	return wait
}

func (s *Scheduler) enqueueDue(ctx context.Context) error {
	now := s.clock.Now()

	players, err := s.store.DuePlayers(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to find due players: %w", err)
	}
	waivers, err := s.store.DueWaivers(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to find due waivers: %w", err)
	}
	s.metrics.RecordBacklog(metrics.KindAuction, len(players))
	s.metrics.RecordBacklog(metrics.KindWaiver, len(waivers))

	jobs := make([]job, 0, len(players)+len(waivers))
	for _, id := range players {
		jobs = append(jobs, job{kind: jobAuction, id: id})
	}
	for _, id := range waivers {
		jobs = append(jobs, job{kind: jobWaiver, id: id})
	}

	for _, j := range jobs {
		if !s.claim(j) {
			continue
		}
		select {
		case s.workCh <- j:
		case <-ctx.Done():
			s.release(j)
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) claim(j job) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if s.inFlight[j] {
		return false
	}
	s.inFlight[j] = true
	return true
}

func (s *Scheduler) release(j job) {
	s.inFlightMu.Lock()
	delete(s.inFlight, j)
	s.inFlightMu.Unlock()
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.workCh:
			if err := s.handle(ctx, j); err != nil {
				log.Error().
					Err(err).
					Str("kind", string(j.kind)).
					Str("id", j.id.String()).
					Int("worker_id", workerID).
					Msg("resolution failed")
			}
			s.release(j)
			// the next deadline may have moved
			s.Wake()
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, j job) error {
	now := s.clock.Now()
	switch j.kind {
	case jobAuction:
		_, err := s.auctions.ResolvePlayer(ctx, j.id, now)
		return err
	case jobWaiver:
		_, err := s.waivers.ResolveWaiver(ctx, j.id, now)
		return err
	}
	return fmt.Errorf("unknown job kind %q", j.kind)
}

// Summary counts the outcomes of a one-shot sweep
type Summary struct {
	Auctions map[auction.Outcome]int
	Waivers  map[waiver.Outcome]int
}

// RunOnce resolves everything due at the current time and returns. Entities that fail
// to resolve are counted under the failed outcome and stay due for the next run.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	now := s.clock.Now()
	sum := Summary{Auctions: map[auction.Outcome]int{}, Waivers: map[waiver.Outcome]int{}}

	ar, err := s.auctions.Sweep(ctx, now)
	if err != nil {
		return sum, fmt.Errorf("auction sweep: %w", err)
	}
	for _, r := range ar {
		sum.Auctions[r.Outcome]++
	}

	wr, err := s.waivers.Sweep(ctx, now)
	if err != nil {
		return sum, fmt.Errorf("waiver sweep: %w", err)
	}
	for _, r := range wr {
		sum.Waivers[r.Outcome]++
	}

	log.Info().
		Int("auctions", len(ar)).
		Int("waivers", len(wr)).
		Int("failed", sum.Auctions[auction.OutcomeFailed]+sum.Waivers[waiver.OutcomeFailed]).
		Time("now", now).
		Msg("sweep complete")
	return sum, nil
}
