// Package archetype groups traders into behavioural archetypes with k-means.
package archetype

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/floats"

	"trader-explorer/internal/domain"
)

// Cluster count bounds.
const (
	MinK     = 2
	MaxK     = 12
	DefaultK = 4
)

// restarts is the number of k-means runs; the lowest inertia wins.
const restarts = 8

var (
	// ErrInvalidK is returned when k is outside [MinK, MaxK].
	ErrInvalidK = errors.New("invalid cluster count")

	// ErrTooFewTraders is returned when there are fewer traders than clusters.
	ErrTooFewTraders = errors.New("fewer traders than clusters")
)

// point is one trader in scaled feature space.
type point struct {
	trader string
	coords clusters.Coordinates
}

func (p point) Coordinates() clusters.Coordinates {
	return p.coords
}

func (p point) Distance(c clusters.Coordinates) float64 {
	return p.coords.Distance(c)
}

// scaler maps each feature to [0, 1] by min-max scaling.
type scaler struct {
	min, span []float64
}

func newScaler(rows [][]float64) scaler {
	dims := len(rows[0])
	s := scaler{min: make([]float64, dims), span: make([]float64, dims)}
	col := make([]float64, len(rows))
	for d := 0; d < dims; d++ {
		for i, r := range rows {
			col[i] = r[d]
		}
		s.min[d] = floats.Min(col)
		s.span[d] = floats.Max(col) - s.min[d]
	}
	return s
}

func (s scaler) scale(v []float64) clusters.Coordinates {
	out := make(clusters.Coordinates, len(v))
	for d, x := range v {
		if s.span[d] > 0 {
			out[d] = (x - s.min[d]) / s.span[d]
		}
	}
	return out
}

func (s scaler) unscale(c clusters.Coordinates) []float64 {
	out := make([]float64, len(c))
	for d, x := range c {
		out[d] = s.min[d] + x*s.span[d]
	}
	return out
}

func featureVector(f domain.ClusterFeatures) []float64 {
	return []float64{f.Footprint, f.ROI, f.TransactionsPerDay}
}

// Partition clusters traders on (footprint, roi, transactions_per_day).
// Clusters are ordered by size DESC then first member, numbered from 1.
// Empty clusters are omitted.
func Partition(features []domain.ClusterFeatures, k int) ([]domain.ArchetypeCluster, error) {
	if k < MinK || k > MaxK {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidK, k, MinK, MaxK)
	}
	if len(features) == 0 {
		return []domain.ArchetypeCluster{}, nil
	}
	if len(features) < k {
		return nil, fmt.Errorf("%w: %d traders, k=%d", ErrTooFewTraders, len(features), k)
	}

	raw := make([][]float64, len(features))
	for i, f := range features {
		raw[i] = featureVector(f)
	}
	sc := newScaler(raw)

	obs := make(clusters.Observations, len(features))
	for i, f := range features {
		obs[i] = point{trader: f.Trader, coords: sc.scale(raw[i])}
	}

	best, err := bestPartition(obs, k)
	if err != nil {
		return nil, err
	}

	members := make([][]string, len(best))
	for _, o := range obs {
		ci := best.Nearest(o)
		members[ci] = append(members[ci], o.(point).trader)
	}

	out := make([]domain.ArchetypeCluster, 0, len(best))
	for ci, c := range best {
		if len(members[ci]) == 0 {
			continue
		}
		sort.Strings(members[ci])
		center := sc.unscale(c.Center)
		out = append(out, domain.ArchetypeCluster{
			Center: domain.ClusterFeatures{
				Footprint:          center[0],
				ROI:                center[1],
				TransactionsPerDay: center[2],
			},
			Members: members[ci],
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].Members[0] < out[j].Members[0]
	})
	for i := range out {
		out[i].ID = i + 1
	}
	return out, nil
}

// bestPartition runs k-means several times and keeps the lowest inertia.
func bestPartition(obs clusters.Observations, k int) (clusters.Clusters, error) {
	km := kmeans.New()

	var (
		best        clusters.Clusters
		bestInertia = math.Inf(1)
	)
	for i := 0; i < restarts; i++ {
		cc, err := km.Partition(obs, k)
		if err != nil {
			return nil, fmt.Errorf("partition: %w", err)
		}
		if in := inertia(cc, obs); in < bestInertia {
			best, bestInertia = cc, in
		}
	}
	return best, nil
}

// inertia is the sum of squared distances from each observation to its
// nearest center.
func inertia(cc clusters.Clusters, obs clusters.Observations) float64 {
	var total float64
	for _, o := range obs {
		total += o.Distance(cc[cc.Nearest(o)].Center)
	}
	return total
}
