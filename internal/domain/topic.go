package domain

// TopicShare is one (trader, topic) row of trader_topic_share.
type TopicShare struct {
	Trader string
	Topic  string
	Share  float64
}

// TopicMetrics is one row of the trader_topic_metrics view.
type TopicMetrics struct {
	Trader       string
	ActiveTopics int
	TopicEntropy float64 // Shannon entropy (nats) of normalized shares
	NicheScore   float64 // 1 - entropy/ln(active_topics); 1.0 for a single topic
}

// DefaultTopicMetrics returns metrics for a trader without topic data.
func DefaultTopicMetrics(trader string) TopicMetrics {
	return TopicMetrics{
		Trader:       trader,
		ActiveTopics: 0,
		TopicEntropy: 0,
		NicheScore:   1.0,
	}
}

// TraderTopics is a trader's topic distribution with its diversity metrics.
type TraderTopics struct {
	Metrics TopicMetrics
	Shares  []TopicShare // ordered by share DESC
}
