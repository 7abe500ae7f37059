// Command report renders a Markdown or CSV snapshot of the loaded trader data.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"trader-explorer/internal/config"
	"trader-explorer/internal/reporting"
	pgstore "trader-explorer/internal/storage/postgres"
)

const (
	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a report of the trader dataset",

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: run,
	}

	flags := cmd.Flags()
	flags.String(config.KeyDBURL, "", "PostgreSQL connection string (env TRADER_EXPLORER_DB_URL)")
	flags.String(config.KeyFormat, formatMarkdown, "output format (markdown, csv)")
	flags.StringP(config.KeyOutput, "o", "", "output file (default stdout)")
	flags.Int("top", 10, "number of top traders listed")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}

	dsn := v.GetString(config.KeyDBURL)
	if dsn == "" {
		return config.ErrMissingDBURL
	}

	format := v.GetString(config.KeyFormat)
	if format != formatMarkdown && format != formatCSV {
		return fmt.Errorf("unknown format %q", format)
	}

	ctx := cmd.Context()
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	report, err := reporting.NewGenerator(pgstore.NewAnalyticsStore(pool)).
		WithTop(v.GetInt("top")).
		Generate(ctx)
	if err != nil {
		return err
	}

	var out string
	switch format {
	case formatCSV:
		out = reporting.RenderCSV(report)
	default:
		out = reporting.RenderMarkdown(report)
	}

	path := v.GetString(config.KeyOutput)
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
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
