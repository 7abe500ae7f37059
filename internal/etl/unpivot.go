package etl

import (
	"fmt"
	"strings"

	"trader-explorer/internal/domain"
)

// TopicColumns returns the columns carrying topic shares, in table order.
func TopicColumns(t *Table) []string {
	var cols []string
	for _, c := range t.Columns {
		if isTopicColumn(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func isTopicColumn(name string) bool {
	return len(name) >= len(domain.TopicColumnPrefix) &&
		strings.EqualFold(name[:len(domain.TopicColumnPrefix)], domain.TopicColumnPrefix)
}

// TopicName strips the topic prefix and surrounding whitespace from a column name.
func TopicName(column string) string {
	if isTopicColumn(column) {
		column = column[len(domain.TopicColumnPrefix):]
	}
	return strings.TrimSpace(column)
}

// Unpivot reshapes wide topic columns into (trader, topic, share) rows.
// Rows are emitted row-major: input row order, then topic column order.
// NULL and zero shares are dropped. Topic names that collide after
// normalization are kept as separate rows.
func Unpivot(t *Table) ([]domain.TopicShare, error) {
	topicCols := TopicColumns(t)
	out := []domain.TopicShare{}
	if len(topicCols) == 0 {
		return out, nil
	}

	traderIdx := t.ColumnIndex(domain.ColumnTrader)
	if traderIdx < 0 {
		return nil, fmt.Errorf("unpivot %d topic columns: %w", len(topicCols), ErrMissingTraderColumn)
	}

	idx := make([]int, len(topicCols))
	names := make([]string, len(topicCols))
	for j, c := range topicCols {
		idx[j] = t.ColumnIndex(c)
		names[j] = TopicName(c)
	}

	for _, row := range t.Rows {
		trader := cellString(row, traderIdx)
		for j, i := range idx {
			if i >= len(row) {
				continue
			}
			share, ok := ToFloat(row[i])
			if !ok || share == 0 {
				continue
			}
			out = append(out, domain.TopicShare{
				Trader: trader,
				Topic:  names[j],
				Share:  share,
			})
		}
	}
	return out, nil
}

func cellString(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}
