package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnStats summarises the numeric values of one column.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// Describe computes summary statistics for each named column. Missing and
// non-numeric cells are ignored. Unknown columns and columns with no
// numeric values are left out. A nil columns slice describes every value
// column.
func Describe(t *Table, columns []string) []ColumnStats {
	if columns == nil {
		columns = t.Columns
	}
	out := make([]ColumnStats, 0, len(columns))
	for _, c := range columns {
		get, ok := t.getter(c)
		if !ok {
			continue
		}
		values := make([]float64, 0, len(t.Rows))
		for _, r := range t.Rows {
			if f, ok := get(r).Float(); ok {
				values = append(values, f)
			}
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, describeValues(c, values))
	}
	return out
}

func describeValues(column string, values []float64) ColumnStats {
	sort.Float64s(values)
	s := ColumnStats{
		Column: column,
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Min:    floats.Min(values),
		P25:    quantile(0.25, values),
		Median: quantile(0.5, values),
		P75:    quantile(0.75, values),
		Max:    floats.Max(values),
	}
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	return s
}

// quantile interpolates linearly between the closest ranks of sorted,
// matching the common (n-1)p definition.
func quantile(p float64, sorted []float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := p * float64(len(sorted)-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
