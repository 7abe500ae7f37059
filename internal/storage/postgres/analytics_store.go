package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/storage"
)

// querier is the read subset shared by *pgxpool.Pool and *pgxpool.Conn.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AnalyticsStore implements storage.AnalyticsReader and storage.SessionProvider
// using PostgreSQL.
type AnalyticsStore struct {
	reader
	pool *Pool
}

// NewAnalyticsStore creates a new AnalyticsStore.
func NewAnalyticsStore(pool *Pool) *AnalyticsStore {
	return &AnalyticsStore{reader: reader{q: pool}, pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.AnalyticsReader = (*AnalyticsStore)(nil)
	_ storage.SessionProvider = (*AnalyticsStore)(nil)
	_ storage.Session         = (*Session)(nil)
)

// Acquire checks out a dedicated connection for one request.
func (s *AnalyticsStore) Acquire(ctx context.Context) (storage.Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{reader: reader{q: conn}, release: conn.Release}, nil
}

// Session is an AnalyticsReader pinned to one pooled connection.
type Session struct {
	reader
	release func()
}

// Release returns the connection to the pool.
func (s *Session) Release() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

// reader runs the analytics queries against any querier.
type reader struct {
	q querier
}

// Overview returns dataset totals and the top traders by |pnl|.
func (r reader) Overview(ctx context.Context, top int) (*domain.Overview, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(trader_volume), 0),
			COALESCE(SUM(trader_pnl), 0),
			AVG(roi)
		FROM trader_agg
	`

	var o domain.Overview
	if err := r.q.QueryRow(ctx, query).Scan(&o.TotalTraders, &o.TotalVolume, &o.TotalPnL, &o.AverageROI); err != nil {
		return nil, fmt.Errorf("get overview totals: %w", err)
	}

	topQuery := `
		SELECT trader, trader_pnl, roi, trader_volume, trader_label
		FROM trader_agg
		ORDER BY ABS(trader_pnl) DESC NULLS LAST, trader ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, topQuery, top)
	if err != nil {
		return nil, fmt.Errorf("get top traders: %w", err)
	}
	defer rows.Close()

	o.TopTraders = []domain.TraderSummary{}
	for rows.Next() {
		var (
			t   domain.TraderSummary
			pnl *float64
		)
		if err := rows.Scan(&t.Trader, &pnl, &t.ROI, &t.Volume, &t.Label); err != nil {
			return nil, fmt.Errorf("scan top trader row: %w", err)
		}
		if pnl != nil {
			t.PnL = *pnl
		}
		o.TopTraders = append(o.TopTraders, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top trader rows: %w", err)
	}

	return &o, nil
}

// LabelSummary returns per-label cohort statistics ordered by count DESC.
func (r reader) LabelSummary(ctx context.Context) ([]domain.LabelSummary, error) {
	query := `
		SELECT
			COALESCE(trader_label, 'Unknown') AS label,
			COUNT(*)                         AS count,
			AVG(trader_ppv)                  AS avg_ppv,
			AVG(roi)                         AS roi_mean,
			STDDEV_POP(roi)                  AS roi_std
		FROM trader_agg
		GROUP BY COALESCE(trader_label, 'Unknown')
		ORDER BY count DESC, label ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get label summary: %w", err)
	}
	defer rows.Close()

	labels := []domain.LabelSummary{}
	for rows.Next() {
		var l domain.LabelSummary
		if err := rows.Scan(&l.Label, &l.Count, &l.AvgPPV, &l.ROIMean, &l.ROIStd); err != nil {
			return nil, fmt.Errorf("scan label summary row: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label summary rows: %w", err)
	}

	return labels, nil
}

// FootprintScatter returns up to limit points with non-NULL footprint and roi.
func (r reader) FootprintScatter(ctx context.Context, limit int) ([]domain.FootprintPoint, error) {
	query := `
		SELECT
			trader,
			price_levels_per_volume AS footprint,
			roi                     AS edge
		FROM trader_agg
		WHERE price_levels_per_volume IS NOT NULL
		  AND roi IS NOT NULL
		ORDER BY ABS(trader_pnl) DESC NULLS LAST, trader ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get footprint scatter: %w", err)
	}
	defer rows.Close()

	points := []domain.FootprintPoint{}
	for rows.Next() {
		var p domain.FootprintPoint
		if err := rows.Scan(&p.Trader, &p.Footprint, &p.Edge); err != nil {
			return nil, fmt.Errorf("scan footprint row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate footprint rows: %w", err)
	}

	return points, nil
}

// TraderTopics returns the topic distribution of a trader.
// A trader without a trader_topic_metrics row gets domain.DefaultTopicMetrics.
func (r reader) TraderTopics(ctx context.Context, trader string) (*domain.TraderTopics, error) {
	sharesQuery := `
		SELECT trader, topic, share
		FROM trader_topic_share
		WHERE trader = $1
		ORDER BY share DESC, id ASC
	`

	rows, err := r.q.Query(ctx, sharesQuery, trader)
	if err != nil {
		return nil, fmt.Errorf("get topic shares: %w", err)
	}
	shares, err := scanTopicShares(rows)
	if err != nil {
		return nil, err
	}

	metricsQuery := `
		SELECT trader, active_topics, topic_entropy, niche_score
		FROM trader_topic_metrics
		WHERE trader = $1
	`

	var m domain.TopicMetrics
	err = r.q.QueryRow(ctx, metricsQuery, trader).Scan(&m.Trader, &m.ActiveTopics, &m.TopicEntropy, &m.NicheScore)
	if err == nil {
		return &domain.TraderTopics{Metrics: m, Shares: shares}, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("get topic metrics: %w", err)
	}

	exists, err := r.traderExists(ctx, trader)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	return &domain.TraderTopics{Metrics: domain.DefaultTopicMetrics(trader), Shares: shares}, nil
}

func (r reader) traderExists(ctx context.Context, trader string) (bool, error) {
	var one int
	err := r.q.QueryRow(ctx, `SELECT 1 FROM trader_agg WHERE trader = $1`, trader).Scan(&one)
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("check trader exists: %w", err)
	}
	return true, nil
}

// Archetypes groups traders by label, ordered by label.
func (r reader) Archetypes(ctx context.Context) ([]domain.Archetype, error) {
	query := `
		SELECT
			COALESCE(trader_label, 'Unknown')  AS label,
			ARRAY_AGG(trader ORDER BY trader) AS members
		FROM trader_agg
		GROUP BY COALESCE(trader_label, 'Unknown')
		ORDER BY label
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get archetypes: %w", err)
	}
	defer rows.Close()

	archetypes := []domain.Archetype{}
	for rows.Next() {
		a := domain.Archetype{ID: len(archetypes) + 1}
		if err := rows.Scan(&a.Name, &a.Members); err != nil {
			return nil, fmt.Errorf("scan archetype row: %w", err)
		}
		archetypes = append(archetypes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archetype rows: %w", err)
	}

	return archetypes, nil
}

// TraderProfile returns a single trader joined with its percentiles.
func (r reader) TraderProfile(ctx context.Context, trader string) (*domain.TraderProfile, error) {
	query := `
		SELECT
			a.trader, a.trader_label, a.trader_pnl, a.trader_volume, a.roi,
			a.transaction_count, a.transactions_per_day, a.markets_per_day,
			a.trader_ppv, a.price_levels_per_volume,
			s.pnl_percentile, s.volume_percentile, s.roi_percentile
		FROM trader_agg a
		LEFT JOIN trader_stats s ON s.trader = a.trader
		WHERE a.trader = $1
	`

	var p domain.TraderProfile
	err := r.q.QueryRow(ctx, query, trader).Scan(
		&p.Trader,
		&p.Label,
		&p.PnL,
		&p.Volume,
		&p.ROI,
		&p.TransactionCount,
		&p.TransactionsPerDay,
		&p.MarketsPerDay,
		&p.PPV,
		&p.Footprint,
		&p.PnLPercentile,
		&p.VolumePercentile,
		&p.ROIPercentile,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trader profile: %w", err)
	}
	return &p, nil
}

// ClusterFeatures returns clustering features ordered by trader.
func (r reader) ClusterFeatures(ctx context.Context) ([]domain.ClusterFeatures, error) {
	query := `
		SELECT trader, price_levels_per_volume, roi, COALESCE(transactions_per_day, 0)
		FROM trader_agg
		WHERE price_levels_per_volume IS NOT NULL
		  AND roi IS NOT NULL
		ORDER BY trader
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get cluster features: %w", err)
	}
	defer rows.Close()

	features := []domain.ClusterFeatures{}
	for rows.Next() {
		var f domain.ClusterFeatures
		if err := rows.Scan(&f.Trader, &f.Footprint, &f.ROI, &f.TransactionsPerDay); err != nil {
			return nil, fmt.Errorf("scan cluster feature row: %w", err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster feature rows: %w", err)
	}

	return features, nil
}

// scanTopicShares scans and closes rows of (trader, topic, share).
func scanTopicShares(rows pgx.Rows) ([]domain.TopicShare, error) {
	defer rows.Close()

	shares := []domain.TopicShare{}
	for rows.Next() {
		var s domain.TopicShare
		if err := rows.Scan(&s.Trader, &s.Topic, &s.Share); err != nil {
			return nil, fmt.Errorf("scan topic share row: %w", err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic share rows: %w", err)
	}

	return shares, nil
}
