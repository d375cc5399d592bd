package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/dynasty-market/go/internal/config"
	"github.com/mcdev12/dynasty-market/go/internal/gateway"
	"github.com/mcdev12/dynasty-market/go/internal/outbox"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveRelay bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the market API, sweep scheduler and live feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// signal-aware context
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		services, err := setupServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer services.Close()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			services.Connections.Start(ctx)
			return nil
		})
		g.Go(func() error {
			return services.Scheduler.Run(ctx)
		})

		if cfg.NATS.Enabled {
			consumer, err := gateway.NewEventConsumer(ctx, services.Connections, cfg.ConsumerConfig())
			if err != nil {
				return err
			}
			defer consumer.Stop()
			g.Go(func() error {
				return consumer.Start(ctx)
			})
		}

		// in-memory outboxes are only visible to this process
		var health *outbox.HealthChecker
		if serveRelay || cfg.Store.Driver == config.DriverMemory {
			collector := outbox.NewPrometheusMetrics(services.Registry)
			publisher, broker, err := setupPublisher(ctx, cfg, collector)
			if err != nil {
				return err
			}
			if broker != nil {
				defer broker.Close()
				health = outbox.NewHealthChecker(services.Outbox, broker)
			} else {
				health = outbox.NewHealthChecker(services.Outbox, nil)
			}
			relay := outbox.NewRelay(services.Outbox, publisher, collector, services.Clock, cfg.RelayConfig())
			notes, err := relayNotes(ctx, cfg)
			if err != nil {
				return err
			}
			g.Go(func() error {
				return relay.Run(ctx, notes)
			})
		}

		server := setupServer(services, health)
		g.Go(func() error {
			log.Info().
				Str("addr", server.Addr).
				Str("store", cfg.Store.Driver).
				Bool("nats", cfg.NATS.Enabled).
				Msg("market server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			log.Info().Msg("shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			log.Error().Err(err).Msg("server exited unexpectedly")
			return err
		}
		log.Info().Msg("graceful shutdown complete")
		return nil
	},
}

// relayNotes returns outbox notifications for the postgres driver. Memory outboxes
// are polled only.
func relayNotes(ctx context.Context, cfg config.Config) (<-chan string, error) {
	if cfg.Store.Driver != config.DriverPostgres {
		return nil, nil
	}
	listener, err := outbox.NewListener(dbDSN(), cfg.Outbox.ListenerPing)
	if err != nil {
		return nil, err
	}
	return listener.Notes(ctx), nil
}

func init() {
	serveCmd.Flags().BoolVar(&serveRelay, "relay", false, "also relay the outbox from this process")
	rootCmd.AddCommand(serveCmd)
}
