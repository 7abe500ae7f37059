package storage

import (
	"context"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/etl"
)

// TraderLoader replaces the contents of trader_agg and trader_topic_share.
type TraderLoader interface {
	// Replace truncates both relations and inserts traders (projected to
	// domain.TraderAggColumns) and topics as one atomic unit. On error the
	// relations keep their previous contents.
	Replace(ctx context.Context, traders *etl.Table, topics []domain.TopicShare) (*domain.LoadResult, error)
}

// ViewRefresher recomputes the derived views built on the loaded relations.
type ViewRefresher interface {
	// Refresh recomputes trader_topic_metrics and trader_stats without
	// blocking concurrent readers.
	Refresh(ctx context.Context) error
}

// AnalyticsReader provides the read-only queries served by the API.
type AnalyticsReader interface {
	// Overview returns dataset totals and the top traders by |pnl|.
	Overview(ctx context.Context, top int) (*domain.Overview, error)

	// LabelSummary returns per-label cohort statistics ordered by count DESC.
	LabelSummary(ctx context.Context) ([]domain.LabelSummary, error)

	// FootprintScatter returns up to limit points with non-NULL footprint and roi.
	FootprintScatter(ctx context.Context, limit int) ([]domain.FootprintPoint, error)

	// TraderTopics returns the topic distribution of a trader.
	// Returns ErrNotFound if the trader is not in trader_agg.
	TraderTopics(ctx context.Context, trader string) (*domain.TraderTopics, error)

	// Archetypes groups traders by label, ordered by label.
	Archetypes(ctx context.Context) ([]domain.Archetype, error)

	// TraderProfile returns a single trader. Returns ErrNotFound if not exists.
	TraderProfile(ctx context.Context, trader string) (*domain.TraderProfile, error)

	// ClusterFeatures returns clustering features for traders with
	// non-NULL footprint and roi, ordered by trader.
	ClusterFeatures(ctx context.Context) ([]domain.ClusterFeatures, error)
}

// Session is an AnalyticsReader bound to one store connection.
// Release must be called exactly once.
type Session interface {
	AnalyticsReader
	Release()
}

// SessionProvider hands out request-scoped sessions.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
}
