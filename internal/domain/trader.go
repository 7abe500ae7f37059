package domain

// Column names of the trader aggregate dataset.
const (
	ColumnTrader           = "trader"
	ColumnTraderLabel      = "trader_label"
	ColumnTransactionCount = "transaction_count"

	// TopicColumnPrefix marks wide topic share columns (matched case-insensitively).
	TopicColumnPrefix = "topic_"

	// UnknownLabel groups traders without a label.
	UnknownLabel = "Unknown"
)

// NumericColumns lists source columns coerced to numbers before loading.
var NumericColumns = []string{
	"trader_pnl",
	"trader_volume",
	ColumnTransactionCount,
	"transactions_per_day",
	"volume_per_day",
	"markets_per_day",
	"price_levels_consumed",
	"price_levels_per_transaction",
	"price_levels_consumed_vw",
	"price_levels_vw_per_transaction",
	"price_levels_per_volume",
	"mean_delta",
	"std_delta",
	"mean_time",
	"std_time",
	"mean_time_vw",
	"std_time_vw",
	"trader_ppv",
	"mean_tx_value",
	"std_tx_value",
	"largest_transformers_topic_share",
	"largest_tags_topic_share",
}

// IntegerColumns lists numeric columns that must hold whole numbers.
var IntegerColumns = []string{ColumnTransactionCount}

// TraderAggColumns is the explicit column list written to trader_agg.
// Source columns outside this list are not loaded.
var TraderAggColumns = []string{
	ColumnTrader,
	"trader_pnl",
	"trader_volume",
	ColumnTransactionCount,
	"transactions_per_day",
	"volume_per_day",
	"markets_per_day",
	"price_levels_consumed",
	"price_levels_per_transaction",
	"price_levels_consumed_vw",
	"price_levels_vw_per_transaction",
	"price_levels_per_volume",
	"mean_delta",
	"std_delta",
	"mean_time",
	"std_time",
	"mean_time_vw",
	"std_time_vw",
	"trader_ppv",
	"mean_tx_value",
	"std_tx_value",
	ColumnTraderLabel,
	"largest_transformers_topic_share",
	"largest_tags_topic_share",
}

// TraderSummary is a compact view of one trader_agg row.
type TraderSummary struct {
	Trader string
	PnL    float64  // 0 when trader_pnl is NULL
	ROI    *float64 // trader_pnl / trader_volume, NULL when volume is 0 or NULL
	Volume *float64
	Label  *string
}

// TraderProfile is a trader_agg row joined with its trader_stats percentiles.
type TraderProfile struct {
	Trader             string
	Label              *string
	PnL                *float64
	Volume             *float64
	ROI                *float64
	TransactionCount   *int64
	TransactionsPerDay *float64
	MarketsPerDay      *float64
	PPV                *float64
	Footprint          *float64 // price_levels_per_volume

	// Percentiles in [0, 1]; NULL until trader_stats is refreshed.
	PnLPercentile    *float64
	VolumePercentile *float64
	ROIPercentile    *float64
}
