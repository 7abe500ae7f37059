// Command server serves the read-only trader analytics API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trader-explorer/internal/api"
	"trader-explorer/internal/config"
	"trader-explorer/internal/logging"
	"trader-explorer/internal/observability"
	"trader-explorer/internal/storage/migrations"
	pgstore "trader-explorer/internal/storage/postgres"
)

// poolStatsInterval is how often connection gauges are refreshed.
const poolStatsInterval = 15 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the trader explorer API",

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: run,
	}

	flags := cmd.Flags()
	flags.String(config.KeyDBURL, "", "PostgreSQL connection string (env TRADER_EXPLORER_DB_URL)")
	flags.String(config.KeyAddr, config.DefaultAddr, "HTTP listen address")
	flags.Bool(config.KeyInitSchema, false, "create tables and views on startup")
	flags.Duration(config.KeyShutdownTimeout, config.DefaultShutdownTimeout, "graceful shutdown timeout")
	flags.String(config.KeyLogLevel, config.DefaultLogLevel, "log level")
	flags.String(config.KeyLogFormat, config.DefaultLogFormat, "log format (prefixed, text, json)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}

	cfg := config.ServerFrom(v)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	log := logrus.WithField("component", "server")

	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.InitSchema {
		if err := migrations.ApplyPostgresSchema(ctx, pool); err != nil {
			return err
		}
		log.Info("schema applied")
	}

	metrics := observability.DefaultMetrics
	go reportPoolStats(ctx, pool, metrics)

	router := api.NewRouter(api.Options{
		Sessions: pgstore.NewAnalyticsStore(pool),
		Ping:     pool.Ping,
		Metrics:  metrics,
		Logger:   logrus.WithField("component", "api"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func reportPoolStats(ctx context.Context, pool *pgstore.Pool, m *observability.Metrics) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		stat := pool.Stat()
		m.UpdateConnections(stat.AcquiredConns(), stat.IdleConns(), stat.TotalConns())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("server exited")
		os.Exit(1)
	}
}
