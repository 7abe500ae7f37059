package domain

// LoadResult reports what a bulk replace wrote.
type LoadResult struct {
	TradersInserted int64
	TopicsInserted  int64
}
