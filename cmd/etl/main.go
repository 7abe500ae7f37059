// Command etl loads a directory of trader CSV files into PostgreSQL and
// refreshes the derived views.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trader-explorer/internal/config"
	"trader-explorer/internal/logging"
	"trader-explorer/internal/orchestrator"
	"trader-explorer/internal/storage/migrations"
	pgstore "trader-explorer/internal/storage/postgres"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Load trader CSV files into the analytics store",

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: run,
	}

	flags := cmd.Flags()
	flags.String(config.KeyDBURL, "", "PostgreSQL connection string (env TRADER_EXPLORER_DB_URL)")
	flags.String(config.KeyCSVDir, "", "directory containing the input .csv files")
	flags.Bool(config.KeyInitSchema, false, "create tables and views before loading")
	flags.String(config.KeyLogLevel, config.DefaultLogLevel, "log level")
	flags.String(config.KeyLogFormat, config.DefaultLogFormat, "log format (prefixed, text, json)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}

	cfg := config.ETLFrom(v)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if v.GetBool(config.KeyInitSchema) {
		if err := migrations.ApplyPostgresSchema(ctx, pool); err != nil {
			return err
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		Loader:    pgstore.NewLoader(pool),
		Refresher: pgstore.NewRefresher(pool),
		Logger:    logrus.WithField("component", "etl"),
	})

	result, err := orch.Run(ctx, cfg.CSVDir)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"rows":     result.RowsRead,
		"traders":  result.TradersLoaded,
		"topics":   result.TopicsLoaded,
		"duration": result.Duration,
	}).Info("load finished")

	fmt.Fprintln(cmd.OutOrStdout(), "Done!")
	return nil
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
