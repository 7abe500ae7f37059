package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/etl"
	"trader-explorer/internal/storage"
)

func fixtureRows() []traderRow {
	return []traderRow{
		{trader: "t1", pnl: "100", volume: "1000", label: "A", topics: map[string]any{"topic_Sports": "0.5", "topic_Politics": "0.5"}},
		{trader: "t2", pnl: "-50", volume: "500", label: "A", topics: map[string]any{"topic_Sports": "1"}},
		{trader: "t3", pnl: "10", volume: "0", label: "B", topics: map[string]any{"topic_Sports": "0"}},
	}
}

var fixtureTopicCols = []string{"topic_Sports", "topic_Politics"}

func TestLoader_Replace(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	loader := NewLoader(pool)

	traders, topics := buildTables(t, fixtureTopicCols, fixtureRows()...)

	result, err := loader.Replace(ctx, traders, topics)
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.TradersInserted)
	assert.Equal(t, int64(3), result.TopicsInserted)
	assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_agg"))
	assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_topic_share"))

	var roi *float64
	require.NoError(t, pool.QueryRow(ctx, "SELECT roi FROM trader_agg WHERE trader = 't1'").Scan(&roi))
	require.NotNil(t, roi)
	assert.InDelta(t, 0.1, *roi, 1e-9)

	require.NoError(t, pool.QueryRow(ctx, "SELECT roi FROM trader_agg WHERE trader = 't3'").Scan(&roi))
	assert.Nil(t, roi, "roi is NULL when volume is zero")
}

func TestLoader_ReplaceTwiceSameCounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	loader := NewLoader(pool)
	traders, topics := buildTables(t, fixtureTopicCols, fixtureRows()...)

	for i := 0; i < 2; i++ {
		_, err := loader.Replace(ctx, traders, topics)
		require.NoError(t, err, "run %d", i+1)

		assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_agg"), "run %d", i+1)
		assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_topic_share"), "run %d", i+1)
	}

	// RESTART IDENTITY resets topic share ids on every load.
	var minID int64
	require.NoError(t, pool.QueryRow(ctx, "SELECT MIN(id) FROM trader_topic_share").Scan(&minID))
	assert.Equal(t, int64(1), minID)
}

func TestLoader_RollbackOnFailedInsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	loader := NewLoader(pool)

	traders, topics := buildTables(t, fixtureTopicCols, fixtureRows()...)
	_, err := loader.Replace(ctx, traders, topics)
	require.NoError(t, err)

	// Repeated trader identifier violates the primary key.
	bad, badTopics := buildTables(t, nil,
		traderRow{trader: "x1", pnl: "1", volume: "1"},
		traderRow{trader: "x1", pnl: "2", volume: "2"},
	)
	_, err = loader.Replace(ctx, bad, badTopics)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_agg"))
	assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_topic_share"))

	var exists bool
	require.NoError(t, pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM trader_agg WHERE trader = 't1')").Scan(&exists))
	assert.True(t, exists, "pre-run contents survive")
}

func TestLoader_RollbackOnMissingTrader(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	loader := NewLoader(pool)

	traders, topics := buildTables(t, fixtureTopicCols, fixtureRows()...)
	_, err := loader.Replace(ctx, traders, topics)
	require.NoError(t, err)

	// Topic row for a trader that is not loaded violates the foreign key.
	good, _ := buildTables(t, nil, traderRow{trader: "y1", pnl: "1", volume: "1"})
	orphan := []domain.TopicShare{{Trader: "ghost", Topic: "Sports", Share: 1}}

	_, err = loader.Replace(ctx, good, orphan)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_agg"))
	assert.Equal(t, int64(3), countRows(t, ctx, pool, "trader_topic_share"))
}

func TestLoader_ProjectionAndEmptyTopics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	loader := NewLoader(pool)

	table := etl.Normalize(func() *etl.Table {
		tb := etl.NewTable([]string{"trader", "not_a_column", "transaction_count"})
		tb.AppendRow([]any{"t1", "zzz", "7"})
		return tb
	}())

	result, err := loader.Replace(ctx, table, []domain.TopicShare{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TradersInserted)
	assert.Equal(t, int64(0), result.TopicsInserted)

	var (
		count *int64
		pnl   *float64
	)
	require.NoError(t, pool.QueryRow(ctx, "SELECT transaction_count, trader_pnl FROM trader_agg WHERE trader = 't1'").Scan(&count, &pnl))
	require.NotNil(t, count)
	assert.Equal(t, int64(7), *count)
	assert.Nil(t, pnl)
	assert.Equal(t, int64(0), countRows(t, ctx, pool, "trader_topic_share"))
}
