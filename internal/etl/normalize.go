package etl

import (
	"math"
	"strconv"
	"strings"

	"trader-explorer/internal/domain"
)

// Normalize coerces domain.NumericColumns to float64 and domain.IntegerColumns
// to int64. Values that cannot be parsed become NULL. Other columns are
// passed through. The input table is not modified.
func Normalize(t *Table) *Table {
	return NormalizeColumns(t, domain.NumericColumns, domain.IntegerColumns)
}

// NormalizeColumns is Normalize with explicit column lists.
func NormalizeColumns(t *Table, numeric, integer []string) *Table {
	isInt := make(map[string]bool, len(integer))
	for _, c := range integer {
		isInt[c] = true
	}

	type target struct {
		idx     int
		integer bool
	}
	var targets []target
	for _, c := range numeric {
		if i := t.ColumnIndex(c); i >= 0 {
			targets = append(targets, target{idx: i, integer: isInt[c]})
		}
	}

	out := NewTable(t.Columns)
	out.Rows = make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		cp := make([]any, len(row))
		copy(cp, row)
		for _, tg := range targets {
			if tg.idx >= len(cp) {
				continue
			}
			f, ok := ToFloat(cp[tg.idx])
			switch {
			case !ok:
				cp[tg.idx] = nil
			case tg.integer:
				if n, ok := toInt(f); ok {
					cp[tg.idx] = n
				} else {
					cp[tg.idx] = nil
				}
			default:
				cp[tg.idx] = f
			}
		}
		out.Rows[r] = cp
	}
	return out
}

// ToFloat converts a cell to a finite float64. NULL, blank, unparseable, NaN
// and infinite values report false.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
