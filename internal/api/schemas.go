package api

import "trader-explorer/internal/domain"

// Response bodies. Field names match the JSON contract of the explorer UI.

type traderSummary struct {
	Trader string   `json:"trader"`
	PnL    float64  `json:"pnl"`
	ROI    *float64 `json:"roi"`
	Volume *float64 `json:"volume"`
	Label  *string  `json:"label"`
}

type overviewResponse struct {
	TotalTraders int64           `json:"total_traders"`
	TotalVolume  float64         `json:"total_volume"`
	TotalPnL     float64         `json:"total_pnl"`
	AverageROI   *float64        `json:"average_roi"`
	TopTraders   []traderSummary `json:"top_traders"`
}

type labelSummaryItem struct {
	Label   string   `json:"label"`
	Count   int64    `json:"count"`
	AvgPPV  *float64 `json:"avg_ppv"`
	ROIMean *float64 `json:"roi_mean"`
	ROIStd  *float64 `json:"roi_std"`
}

type labelSummaryResponse struct {
	Labels []labelSummaryItem `json:"labels"`
}

type footprintPoint struct {
	Trader    string  `json:"trader"`
	Footprint float64 `json:"footprint"`
	Edge      float64 `json:"edge"`
}

type footprintScatterResponse struct {
	Points []footprintPoint `json:"points"`
}

type topicShare struct {
	Topic string  `json:"topic"`
	Share float64 `json:"share"`
}

type traderTopicResponse struct {
	Trader       string       `json:"trader"`
	ActiveTopics int          `json:"active_topics"`
	TopicEntropy float64      `json:"topic_entropy"`
	NicheScore   float64      `json:"niche_score"`
	TopicShares  []topicShare `json:"topic_shares"`
}

type archetypeItem struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type archetypesResponse struct {
	Archetypes []archetypeItem `json:"archetypes"`
}

type clusterCenter struct {
	Footprint          float64 `json:"footprint"`
	ROI                float64 `json:"roi"`
	TransactionsPerDay float64 `json:"transactions_per_day"`
}

type clusterItem struct {
	ID      int           `json:"id"`
	Center  clusterCenter `json:"center"`
	Members []string      `json:"members"`
}

type clustersResponse struct {
	K        int           `json:"k"`
	Clusters []clusterItem `json:"clusters"`
}

type traderProfileResponse struct {
	Trader             string   `json:"trader"`
	Label              *string  `json:"label"`
	PnL                *float64 `json:"pnl"`
	Volume             *float64 `json:"volume"`
	ROI                *float64 `json:"roi"`
	TransactionCount   *int64   `json:"transaction_count"`
	TransactionsPerDay *float64 `json:"transactions_per_day"`
	MarketsPerDay      *float64 `json:"markets_per_day"`
	PPV                *float64 `json:"ppv"`
	Footprint          *float64 `json:"footprint"`
	PnLPercentile      *float64 `json:"pnl_percentile"`
	VolumePercentile   *float64 `json:"volume_percentile"`
	ROIPercentile      *float64 `json:"roi_percentile"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func newOverviewResponse(o *domain.Overview) overviewResponse {
	resp := overviewResponse{
		TotalTraders: o.TotalTraders,
		TotalVolume:  o.TotalVolume,
		TotalPnL:     o.TotalPnL,
		AverageROI:   o.AverageROI,
		TopTraders:   make([]traderSummary, 0, len(o.TopTraders)),
	}
	for _, t := range o.TopTraders {
		resp.TopTraders = append(resp.TopTraders, traderSummary{
			Trader: t.Trader,
			PnL:    t.PnL,
			ROI:    t.ROI,
			Volume: t.Volume,
			Label:  t.Label,
		})
	}
	return resp
}

func newLabelSummaryResponse(labels []domain.LabelSummary) labelSummaryResponse {
	resp := labelSummaryResponse{Labels: make([]labelSummaryItem, 0, len(labels))}
	for _, l := range labels {
		resp.Labels = append(resp.Labels, labelSummaryItem(l))
	}
	return resp
}

func newFootprintScatterResponse(points []domain.FootprintPoint) footprintScatterResponse {
	resp := footprintScatterResponse{Points: make([]footprintPoint, 0, len(points))}
	for _, p := range points {
		resp.Points = append(resp.Points, footprintPoint(p))
	}
	return resp
}

func newTraderTopicResponse(t *domain.TraderTopics) traderTopicResponse {
	resp := traderTopicResponse{
		Trader:       t.Metrics.Trader,
		ActiveTopics: t.Metrics.ActiveTopics,
		TopicEntropy: t.Metrics.TopicEntropy,
		NicheScore:   t.Metrics.NicheScore,
		TopicShares:  make([]topicShare, 0, len(t.Shares)),
	}
	for _, s := range t.Shares {
		resp.TopicShares = append(resp.TopicShares, topicShare{Topic: s.Topic, Share: s.Share})
	}
	return resp
}

func newArchetypesResponse(archetypes []domain.Archetype) archetypesResponse {
	resp := archetypesResponse{Archetypes: make([]archetypeItem, 0, len(archetypes))}
	for _, a := range archetypes {
		members := a.Members
		if members == nil {
			members = []string{}
		}
		resp.Archetypes = append(resp.Archetypes, archetypeItem{ID: a.ID, Name: a.Name, Members: members})
	}
	return resp
}

func newClustersResponse(k int, cs []domain.ArchetypeCluster) clustersResponse {
	resp := clustersResponse{K: k, Clusters: make([]clusterItem, 0, len(cs))}
	for _, c := range cs {
		resp.Clusters = append(resp.Clusters, clusterItem{
			ID: c.ID,
			Center: clusterCenter{
				Footprint:          c.Center.Footprint,
				ROI:                c.Center.ROI,
				TransactionsPerDay: c.Center.TransactionsPerDay,
			},
			Members: c.Members,
		})
	}
	return resp
}

func newTraderProfileResponse(p *domain.TraderProfile) traderProfileResponse {
	return traderProfileResponse(*p)
}
