package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/auction"
	"github.com/mcdev12/dynasty-market/go/internal/bidding"
	"github.com/mcdev12/dynasty-market/go/internal/config"
	"github.com/mcdev12/dynasty-market/go/internal/dbconfig"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/gateway"
	"github.com/mcdev12/dynasty-market/go/internal/market"
	"github.com/mcdev12/dynasty-market/go/internal/metrics"
	"github.com/mcdev12/dynasty-market/go/internal/outbox"
	"github.com/mcdev12/dynasty-market/go/internal/projection"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/mcdev12/dynasty-market/go/internal/sweep"
	"github.com/mcdev12/dynasty-market/go/internal/waiver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Services struct {
	Config      config.Config
	Clock       clockwork.Clock
	Registry    *prometheus.Registry
	DB          *sql.DB
	Store       store.Store
	Outbox      outbox.Repository
	Ledger      *roster.Ledger
	Connections *gateway.ConnectionManager
	Scheduler   *sweep.Scheduler
	Market      *market.Service
}

// setupServices wires the market for cfg. The database is opened only for the
// postgres driver; Close releases it.
func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{
		Config:   cfg,
		Clock:    clockwork.NewRealClock(),
		Registry: prometheus.NewRegistry(),
	}
	s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		database, err := setupDatabase(ctx, dbconfig.NewConfigFromEnv())
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Store = store.NewPostgresStore(database)
		s.Outbox = outbox.NewPostgresRepository(database)
	case config.DriverMemory:
		s.Store = store.NewMemoryStore()
		s.Outbox = outbox.NewMemoryRepository(s.Clock)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	// Wire up dependency chain
	// Store → Ledger → Resolvers → Scheduler → Book/Queue → Service
	s.Connections = gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	sink := events.Fanout{outbox.NewRecorder(s.Outbox)}
	if !cfg.NATS.Enabled {
		// without a broker the live feed is fed in-process
		sink = append(sink, s.Connections)
	}

	m := metrics.NewMarket(s.Registry)
	settings := cfg.Market
	ledger := roster.NewLedger(s.Store, settings, s.Clock)
	s.Ledger = ledger
	projector := projection.NewProjector(s.Store, settings)
	auctions := auction.NewResolver(s.Store, ledger, sink, m, cfg.Sweep.Workers)
	waivers := waiver.NewResolver(s.Store, ledger, sink, m, cfg.Sweep.Workers)
	s.Scheduler = sweep.NewScheduler(s.Store, auctions, waivers, s.Clock, m, cfg.SweepConfig())

	book := bidding.NewBook(s.Store, settings.BiddingWindow, projector, sink, s.Scheduler)
	queue := waiver.NewQueue(s.Store, ledger, settings.WaiverWindow, sink, s.Scheduler)
	directory := market.NewDirectory(s.Store, cfg.Server.DirectoryTTL)
	s.Market = market.NewService(book, projector, queue, auctions, ledger, directory, s.Clock)
	return s, nil
}

func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

// setupPublisher returns the relay's publisher and, for JetStream, the broker to health check
func setupPublisher(ctx context.Context, cfg config.Config, collector outbox.MetricsCollector) (outbox.EventPublisher, *outbox.JetStreamPublisher, error) {
	if !cfg.NATS.Enabled {
		return outbox.NewMetricPublisher(outbox.LogPublisher{}, collector), nil, nil
	}
	js, err := outbox.NewJetStreamPublisher(ctx, cfg.JetStreamConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}
	return outbox.NewMetricPublisher(js, collector), js, nil
}
