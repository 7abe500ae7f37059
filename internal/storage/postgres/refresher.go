package postgres

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"trader-explorer/internal/storage"
)

// DerivedViews are refreshed in this order after every load.
var DerivedViews = []string{
	"trader_topic_metrics",
	"trader_stats",
}

// Refresher implements storage.ViewRefresher using PostgreSQL materialized views.
type Refresher struct {
	pool  *Pool
	views []string
}

// NewRefresher creates a Refresher for DerivedViews.
func NewRefresher(pool *Pool) *Refresher {
	return &Refresher{pool: pool, views: DerivedViews}
}

// Compile-time interface check.
var _ storage.ViewRefresher = (*Refresher)(nil)

// Refresh runs REFRESH MATERIALIZED VIEW CONCURRENTLY on every view.
// All views are attempted; failures are combined.
func (r *Refresher) Refresh(ctx context.Context) error {
	var errs error
	for _, view := range r.views {
		if _, err := r.pool.Exec(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", view)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh materialized view %s: %w", view, err))
		}
	}
	return errs
}
