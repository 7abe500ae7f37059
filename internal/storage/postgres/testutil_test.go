package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/etl"
	"trader-explorer/internal/storage/migrations"
)

// setupTestDB creates a PostgreSQL container for testing and applies the schema.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.ApplyPostgresSchema(ctx, pool), "failed to apply schema")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// traderRow is a test fixture row for trader_agg.
type traderRow struct {
	trader string
	pnl    any
	volume any
	label  any
	ppv    any
	fp     any // price_levels_per_volume
	topics map[string]any
}

// buildTables builds a normalized wide table and its unpivoted topics.
// Topic columns are added in the order of topicCols.
func buildTables(t *testing.T, topicCols []string, rows ...traderRow) (*etl.Table, []domain.TopicShare) {
	t.Helper()

	columns := []string{"trader", "trader_pnl", "trader_volume", "trader_label", "trader_ppv", "price_levels_per_volume", "unused_extra"}
	columns = append(columns, topicCols...)

	table := etl.NewTable(columns)
	for _, r := range rows {
		row := []any{r.trader, r.pnl, r.volume, r.label, r.ppv, r.fp, "ignored"}
		for _, c := range topicCols {
			row = append(row, r.topics[c])
		}
		table.AppendRow(row)
	}

	normalized := etl.Normalize(table)
	topics, err := etl.Unpivot(normalized)
	require.NoError(t, err)
	return normalized, topics
}

func countRows(t *testing.T, ctx context.Context, pool *Pool, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
