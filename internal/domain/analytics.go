package domain

// Overview summarizes the whole trader_agg table.
type Overview struct {
	TotalTraders int64
	TotalVolume  float64
	TotalPnL     float64
	AverageROI   *float64
	TopTraders   []TraderSummary // ordered by |pnl| DESC
}

// LabelSummary holds cohort statistics for one trader label.
type LabelSummary struct {
	Label   string
	Count   int64
	AvgPPV  *float64
	ROIMean *float64 // over non-NULL roi only
	ROIStd  *float64 // population standard deviation over non-NULL roi
}

// FootprintPoint is one scatter point of market footprint against edge.
type FootprintPoint struct {
	Trader    string
	Footprint float64 // price_levels_per_volume
	Edge      float64 // roi
}

// Archetype groups traders under a shared name.
type Archetype struct {
	ID      int
	Name    string
	Members []string
}

// ClusterFeatures are the behavioural features used for archetype clustering.
type ClusterFeatures struct {
	Trader             string
	Footprint          float64
	ROI                float64
	TransactionsPerDay float64
}

// ArchetypeCluster is one k-means cluster of traders.
type ArchetypeCluster struct {
	ID      int
	Center  ClusterFeatures // unscaled center, Trader is empty
	Members []string
}

// Footprint scatter limits.
const (
	FootprintLimitDefault = 500
	FootprintLimitMin     = 10
	FootprintLimitMax     = 5000
)

// TopTradersLimit is the number of traders listed in the overview.
const TopTradersLimit = 10
