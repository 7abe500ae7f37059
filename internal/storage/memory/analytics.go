package memory

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/storage"
)

// sortedTraders returns copies ordered by |pnl| DESC, NULL pnl last, then trader.
func (s *TraderStore) sortedTraders(keep func(*domain.TraderProfile) bool) []domain.TraderProfile {
	out := make([]domain.TraderProfile, 0, len(s.traders))
	for _, p := range s.traders {
		if keep == nil || keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].PnL, out[j].PnL
		switch {
		case a == nil && b == nil:
		case a == nil:
			return false
		case b == nil:
			return true
		case math.Abs(*a) != math.Abs(*b):
			return math.Abs(*a) > math.Abs(*b)
		}
		return out[i].Trader < out[j].Trader
	})
	return out
}

// Overview returns dataset totals and the top traders by |pnl|.
func (s *TraderStore) Overview(_ context.Context, top int) (*domain.Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o := &domain.Overview{TotalTraders: int64(len(s.traders))}
	var rois []float64
	for _, p := range s.traders {
		if p.Volume != nil {
			o.TotalVolume += *p.Volume
		}
		if p.PnL != nil {
			o.TotalPnL += *p.PnL
		}
		if p.ROI != nil {
			rois = append(rois, *p.ROI)
		}
	}
	if len(rois) > 0 {
		avg := stat.Mean(rois, nil)
		o.AverageROI = &avg
	}

	o.TopTraders = []domain.TraderSummary{}
	for _, p := range s.sortedTraders(nil) {
		if len(o.TopTraders) >= top {
			break
		}
		t := domain.TraderSummary{Trader: p.Trader, ROI: p.ROI, Volume: p.Volume, Label: p.Label}
		if p.PnL != nil {
			t.PnL = *p.PnL
		}
		o.TopTraders = append(o.TopTraders, t)
	}
	return o, nil
}

// LabelSummary returns per-label cohort statistics ordered by count DESC, label.
func (s *TraderStore) LabelSummary(_ context.Context) ([]domain.LabelSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type cohort struct {
		count int64
		ppv   []float64
		roi   []float64
	}
	cohorts := make(map[string]*cohort)
	for _, p := range s.traders {
		label := labelOf(p)
		c, ok := cohorts[label]
		if !ok {
			c = &cohort{}
			cohorts[label] = c
		}
		c.count++
		if p.PPV != nil {
			c.ppv = append(c.ppv, *p.PPV)
		}
		if p.ROI != nil {
			c.roi = append(c.roi, *p.ROI)
		}
	}

	labels := make([]domain.LabelSummary, 0, len(cohorts))
	for label, c := range cohorts {
		l := domain.LabelSummary{Label: label, Count: c.count}
		if len(c.ppv) > 0 {
			avg := stat.Mean(c.ppv, nil)
			l.AvgPPV = &avg
		}
		if n := len(c.roi); n > 0 {
			mean, variance := stat.MeanVariance(c.roi, nil)
			// MeanVariance is the sample variance; convert to population.
			std := 0.0
			if n > 1 {
				std = math.Sqrt(variance * float64(n-1) / float64(n))
			}
			l.ROIMean = &mean
			l.ROIStd = &std
		}
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Count != labels[j].Count {
			return labels[i].Count > labels[j].Count
		}
		return labels[i].Label < labels[j].Label
	})
	return labels, nil
}

// FootprintScatter returns up to limit points with non-NULL footprint and roi.
func (s *TraderStore) FootprintScatter(_ context.Context, limit int) ([]domain.FootprintPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := []domain.FootprintPoint{}
	for _, p := range s.sortedTraders(hasFeatures) {
		if len(points) >= limit {
			break
		}
		points = append(points, domain.FootprintPoint{Trader: p.Trader, Footprint: *p.Footprint, Edge: *p.ROI})
	}
	return points, nil
}

// TraderTopics returns the topic distribution of a trader.
func (s *TraderStore) TraderTopics(_ context.Context, trader string) (*domain.TraderTopics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shares := []domain.TopicShare{}
	for _, t := range s.topics {
		if t.Trader == trader {
			shares = append(shares, t)
		}
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Share > shares[j].Share })

	if m, ok := s.metrics[trader]; ok {
		return &domain.TraderTopics{Metrics: m, Shares: shares}, nil
	}
	if _, ok := s.traders[trader]; !ok {
		return nil, storage.ErrNotFound
	}
	return &domain.TraderTopics{Metrics: domain.DefaultTopicMetrics(trader), Shares: shares}, nil
}

// Archetypes groups traders by label, ordered by label.
func (s *TraderStore) Archetypes(_ context.Context) ([]domain.Archetype, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string][]string)
	for _, p := range s.traders {
		label := labelOf(p)
		groups[label] = append(groups[label], p.Trader)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	archetypes := make([]domain.Archetype, 0, len(names))
	for i, name := range names {
		members := groups[name]
		sort.Strings(members)
		archetypes = append(archetypes, domain.Archetype{ID: i + 1, Name: name, Members: members})
	}
	return archetypes, nil
}

// TraderProfile returns a single trader with its last refreshed percentiles.
func (s *TraderStore) TraderProfile(_ context.Context, trader string) (*domain.TraderProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.traders[trader]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *p
	if st, ok := s.stats[trader]; ok {
		out.PnLPercentile = st.pnl
		out.VolumePercentile = st.volume
		out.ROIPercentile = st.roi
	}
	return &out, nil
}

// ClusterFeatures returns clustering features ordered by trader.
func (s *TraderStore) ClusterFeatures(_ context.Context) ([]domain.ClusterFeatures, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	features := []domain.ClusterFeatures{}
	for _, p := range s.traders {
		if !hasFeatures(p) {
			continue
		}
		f := domain.ClusterFeatures{Trader: p.Trader, Footprint: *p.Footprint, ROI: *p.ROI}
		if p.TransactionsPerDay != nil {
			f.TransactionsPerDay = *p.TransactionsPerDay
		}
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool { return features[i].Trader < features[j].Trader })
	return features, nil
}

func hasFeatures(p *domain.TraderProfile) bool {
	return p.Footprint != nil && p.ROI != nil
}

func labelOf(p *domain.TraderProfile) string {
	if p.Label == nil {
		return domain.UnknownLabel
	}
	return *p.Label
}
