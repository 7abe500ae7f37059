package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/etl"
	"trader-explorer/internal/storage"
)

// TraderStore is an in-memory implementation of storage.TraderLoader,
// storage.ViewRefresher and storage.SessionProvider.
// Derived metrics are recomputed only by Refresh, so reads between Replace
// and Refresh see the previous metrics like a materialized view would.
type TraderStore struct {
	mu      sync.RWMutex
	traders map[string]*domain.TraderProfile // keyed by trader
	topics  []domain.TopicShare               // insertion order

	metrics map[string]domain.TopicMetrics
	stats   map[string]percentiles

	sessions atomic.Int64
}

type percentiles struct {
	pnl, volume, roi *float64
}

// NewTraderStore creates a new in-memory trader store.
func NewTraderStore() *TraderStore {
	return &TraderStore{
		traders: make(map[string]*domain.TraderProfile),
		metrics: make(map[string]domain.TopicMetrics),
		stats:   make(map[string]percentiles),
	}
}

// Compile-time interface checks.
var (
	_ storage.TraderLoader    = (*TraderStore)(nil)
	_ storage.ViewRefresher   = (*TraderStore)(nil)
	_ storage.AnalyticsReader = (*TraderStore)(nil)
	_ storage.SessionProvider = (*TraderStore)(nil)
)

// Replace validates every row before swapping in the new contents.
// Returns ErrDuplicateKey for a repeated trader and ErrInvalidInput for a
// missing trader, a non-numeric value or a topic row of an unknown trader.
func (s *TraderStore) Replace(_ context.Context, traders *etl.Table, topics []domain.TopicShare) (*domain.LoadResult, error) {
	if traders == nil {
		return nil, storage.ErrInvalidInput
	}

	next := make(map[string]*domain.TraderProfile, traders.Len())
	for i, row := range traders.Project(domain.TraderAggColumns) {
		p, err := profileFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, exists := next[p.Trader]; exists {
			return nil, fmt.Errorf("row %d: trader %q: %w", i+1, p.Trader, storage.ErrDuplicateKey)
		}
		next[p.Trader] = p
	}

	shares := make([]domain.TopicShare, len(topics))
	for i, t := range topics {
		if _, ok := next[t.Trader]; !ok {
			return nil, fmt.Errorf("topic row %d: unknown trader %q: %w", i+1, t.Trader, storage.ErrInvalidInput)
		}
		shares[i] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.traders = next
	s.topics = shares

	return &domain.LoadResult{
		TradersInserted: int64(len(next)),
		TopicsInserted:  int64(len(shares)),
	}, nil
}

// profileFromRow converts a row projected on domain.TraderAggColumns.
func profileFromRow(row []any) (*domain.TraderProfile, error) {
	col := func(name string) any {
		for i, c := range domain.TraderAggColumns {
			if c == name {
				return row[i]
			}
		}
		return nil
	}

	p := &domain.TraderProfile{}
	switch v := col(domain.ColumnTrader).(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("empty trader: %w", storage.ErrInvalidInput)
		}
		p.Trader = v
	case nil:
		return nil, fmt.Errorf("missing trader: %w", storage.ErrInvalidInput)
	default:
		p.Trader = fmt.Sprint(v)
	}

	if v := col(domain.ColumnTraderLabel); v != nil {
		label := fmt.Sprint(v)
		p.Label = &label
	}

	var err error
	floats := []struct {
		name string
		dst  **float64
	}{
		{"trader_pnl", &p.PnL},
		{"trader_volume", &p.Volume},
		{"transactions_per_day", &p.TransactionsPerDay},
		{"markets_per_day", &p.MarketsPerDay},
		{"trader_ppv", &p.PPV},
		{"price_levels_per_volume", &p.Footprint},
	}
	for _, f := range floats {
		if *f.dst, err = floatValue(col(f.name)); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	// Remaining numeric columns are validated but not kept.
	for _, name := range domain.NumericColumns {
		if name == domain.ColumnTransactionCount {
			continue
		}
		if _, err := floatValue(col(name)); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	switch v := col(domain.ColumnTransactionCount).(type) {
	case nil:
	case int64:
		p.TransactionCount = &v
	case int:
		n := int64(v)
		p.TransactionCount = &n
	default:
		return nil, fmt.Errorf("%s: %T: %w", domain.ColumnTransactionCount, v, storage.ErrInvalidInput)
	}

	if p.PnL != nil && p.Volume != nil && *p.Volume != 0 {
		roi := *p.PnL / *p.Volume
		p.ROI = &roi
	}
	return p, nil
}

func floatValue(v any) (*float64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &x, nil
	case int64:
		f := float64(x)
		return &f, nil
	case int:
		f := float64(x)
		return &f, nil
	default:
		return nil, fmt.Errorf("%T: %w", v, storage.ErrInvalidInput)
	}
}

// Refresh recomputes topic metrics and percentiles from the current contents.
func (s *TraderStore) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = computeTopicMetrics(s.topics)
	s.stats = computePercentiles(s.traders)
	return nil
}

func computeTopicMetrics(topics []domain.TopicShare) map[string]domain.TopicMetrics {
	positive := make(map[string][]float64)
	for _, t := range topics {
		if t.Share > 0 {
			positive[t.Trader] = append(positive[t.Trader], t.Share)
		}
	}

	metrics := make(map[string]domain.TopicMetrics, len(positive))
	for trader, shares := range positive {
		total := floats.Sum(shares)
		p := make([]float64, len(shares))
		for i, v := range shares {
			p[i] = v / total
		}

		m := domain.TopicMetrics{
			Trader:       trader,
			ActiveTopics: len(shares),
			TopicEntropy: stat.Entropy(p),
			NicheScore:   1.0,
		}
		if m.ActiveTopics > 1 {
			m.NicheScore = 1 - m.TopicEntropy/math.Log(float64(m.ActiveTopics))
		}
		metrics[trader] = m
	}
	return metrics
}

func computePercentiles(traders map[string]*domain.TraderProfile) map[string]percentiles {
	out := make(map[string]percentiles, len(traders))
	pnl := percentRank(traders, func(p *domain.TraderProfile) *float64 { return p.PnL })
	volume := percentRank(traders, func(p *domain.TraderProfile) *float64 { return p.Volume })
	roi := percentRank(traders, func(p *domain.TraderProfile) *float64 { return p.ROI })
	for trader := range traders {
		out[trader] = percentiles{pnl: pnl[trader], volume: volume[trader], roi: roi[trader]}
	}
	return out
}

// percentRank computes (rank-1)/(n-1) over the non-NULL values, ties sharing
// the lowest rank. A single value ranks 0.
func percentRank(traders map[string]*domain.TraderProfile, value func(*domain.TraderProfile) *float64) map[string]*float64 {
	type entry struct {
		trader string
		v      float64
	}
	var entries []entry
	for trader, p := range traders {
		if v := value(p); v != nil {
			entries = append(entries, entry{trader: trader, v: *v})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].v < entries[j].v })

	ranks := make(map[string]*float64, len(entries))
	rank := 0
	for i, e := range entries {
		if i == 0 || e.v != entries[i-1].v {
			rank = i
		}
		r := 0.0
		if len(entries) > 1 {
			r = float64(rank) / float64(len(entries)-1)
		}
		ranks[e.trader] = &r
	}
	return ranks
}

// Acquire returns a session over the store. Sessions share the store's lock.
func (s *TraderStore) Acquire(ctx context.Context) (storage.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.sessions.Add(1)
	return &session{TraderStore: s}, nil
}

// ActiveSessions returns the number of acquired, unreleased sessions.
func (s *TraderStore) ActiveSessions() int64 {
	return s.sessions.Load()
}

type session struct {
	*TraderStore
	released bool
}

func (s *session) Release() {
	if s.released {
		return
	}
	s.released = true
	s.sessions.Add(-1)
}
