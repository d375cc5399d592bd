package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/config"
	"github.com/mcdev12/dynasty-market/go/internal/dbconfig"
	"github.com/mcdev12/dynasty-market/go/internal/outbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var relayPort string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish outbox events to JetStream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Driver != config.DriverPostgres {
			return fmt.Errorf("relay needs the %s store driver, got %s", config.DriverPostgres, cfg.Store.Driver)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		database, err := setupDatabase(ctx, dbconfig.NewConfigFromEnv())
		if err != nil {
			return err
		}
		defer database.Close()

		reg := prometheus.NewRegistry()
		collector := outbox.NewPrometheusMetrics(reg)
		publisher, broker, err := setupPublisher(ctx, cfg, collector)
		if err != nil {
			return err
		}
		var health *outbox.HealthChecker
		repo := outbox.NewPostgresRepository(database)
		if broker != nil {
			defer broker.Close()
			health = outbox.NewHealthChecker(repo, broker)
		} else {
			health = outbox.NewHealthChecker(repo, nil)
		}

		listener, err := outbox.NewListener(dbDSN(), cfg.Outbox.ListenerPing)
		if err != nil {
			return err
		}
		relay := outbox.NewRelay(repo, publisher, collector, clockwork.NewRealClock(), cfg.RelayConfig())

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.Handle("/health", health)
		server := &http.Server{
			Addr:              ":" + relayPort,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info().Msg("starting outbox relay")
			return relay.Run(ctx, listener.Notes(ctx))
		})
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func dbDSN() string {
	return dbconfig.NewConfigFromEnv().DSN()
}

func init() {
	relayCmd.Flags().StringVar(&relayPort, "port", "9091", "port for /metrics and /health")
	rootCmd.AddCommand(relayCmd)
}
