package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/etl"
	"trader-explorer/internal/storage"
)

const (
	tableTraderAgg        = "trader_agg"
	tableTraderTopicShare = "trader_topic_share"
)

var topicShareColumns = []string{"trader", "topic", "share"}

// Loader implements storage.TraderLoader using PostgreSQL.
type Loader struct {
	pool *Pool
}

// NewLoader creates a new Loader.
func NewLoader(pool *Pool) *Loader {
	return &Loader{pool: pool}
}

// Compile-time interface check.
var _ storage.TraderLoader = (*Loader)(nil)

// Replace truncates trader_topic_share and trader_agg and reloads them in a
// single transaction. Any failure rolls back to the pre-truncate state.
func (l *Loader) Replace(ctx context.Context, traders *etl.Table, topics []domain.TopicShare) (*domain.LoadResult, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+tableTraderTopicShare+" RESTART IDENTITY CASCADE"); err != nil {
		return nil, fmt.Errorf("truncate %s: %w", tableTraderTopicShare, err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+tableTraderAgg+" RESTART IDENTITY CASCADE"); err != nil {
		return nil, fmt.Errorf("truncate %s: %w", tableTraderAgg, err)
	}

	result := &domain.LoadResult{}

	rows := traders.Project(domain.TraderAggColumns)
	n, err := tx.CopyFrom(ctx, pgx.Identifier{tableTraderAgg}, domain.TraderAggColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return nil, classifyWriteError("copy "+tableTraderAgg, err)
	}
	result.TradersInserted = n

	if len(topics) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{tableTraderTopicShare}, topicShareColumns,
			pgx.CopyFromSlice(len(topics), func(i int) ([]any, error) {
				t := topics[i]
				return []any{t.Trader, t.Topic, t.Share}, nil
			}))
		if err != nil {
			return nil, classifyWriteError("copy "+tableTraderTopicShare, err)
		}
		result.TopicsInserted = n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return result, nil
}
