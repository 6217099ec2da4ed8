package dataset

import (
	"fmt"
)

// Default melt labels.
const (
	DefaultCategoryLabel = "variable"
	DefaultValueLabel    = "value"
)

// LongRow is one (id values, category, value) observation.
type LongRow struct {
	IDs      []Cell
	Category string
	Value    Cell
}

// LongTable is the long form of a wide table.
type LongTable struct {
	IDColumns     []string
	CategoryLabel string
	ValueLabel    string
	Rows          []LongRow
}

// Header returns the column names of the long table.
func (l *LongTable) Header() []string {
	header := make([]string, 0, len(l.IDColumns)+2)
	header = append(header, l.IDColumns...)
	return append(header, l.CategoryLabel, l.ValueLabel)
}

// Strings renders every row as text, aligned with Header.
func (l *LongTable) Strings() [][]string {
	out := make([][]string, 0, len(l.Rows))
	for _, r := range l.Rows {
		rec := make([]string, 0, len(r.IDs)+2)
		for _, id := range r.IDs {
			rec = append(rec, id.String())
		}
		rec = append(rec, r.Category, r.Value.String())
		out = append(out, rec)
	}
	return out
}

// Records renders every row as a column-name keyed map for JSON encoding.
// Key columns stay text so codes such as "0123" keep their leading zeros.
func (l *LongTable) Records() []map[string]any {
	out := make([]map[string]any, 0, len(l.Rows))
	for _, r := range l.Rows {
		rec := make(map[string]any, len(r.IDs)+2)
		for i, c := range l.IDColumns {
			if IsKeyColumn(c) {
				rec[c] = r.IDs[i].String()
				continue
			}
			rec[c] = r.IDs[i]
		}
		rec[l.CategoryLabel] = r.Category
		rec[l.ValueLabel] = r.Value
		out = append(out, rec)
	}
	return out
}

// Melt reshapes t from wide to long form. Each input row yields one output
// row per value column, in value-column order; nothing is aggregated or
// dropped. Every id and value column must exist in t, otherwise a
// MissingColumnError naming all absent columns is returned. Empty labels
// fall back to "variable" and "value".
func Melt(t *Table, idColumns, valueColumns []string, categoryLabel, valueLabel string) (*LongTable, error) {
	if categoryLabel == "" {
		categoryLabel = DefaultCategoryLabel
	}
	if valueLabel == "" {
		valueLabel = DefaultValueLabel
	}
	if categoryLabel == valueLabel {
		return nil, fmt.Errorf("%w: category and value labels are both %q", ErrLabelConflict, categoryLabel)
	}

	var missing []string
	idGetters := make([]func(Row) Cell, 0, len(idColumns))
	for _, c := range idColumns {
		if c == categoryLabel || c == valueLabel {
			return nil, fmt.Errorf("%w: %q", ErrLabelConflict, c)
		}
		g, ok := t.getter(c)
		if !ok {
			missing = append(missing, c)
			continue
		}
		idGetters = append(idGetters, g)
	}
	valueGetters := make([]func(Row) Cell, 0, len(valueColumns))
	for _, c := range valueColumns {
		g, ok := t.getter(c)
		if !ok {
			missing = append(missing, c)
			continue
		}
		valueGetters = append(valueGetters, g)
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}

	long := &LongTable{
		IDColumns:     append([]string(nil), idColumns...),
		CategoryLabel: categoryLabel,
		ValueLabel:    valueLabel,
		Rows:          make([]LongRow, 0, len(t.Rows)*len(valueColumns)),
	}
	for _, r := range t.Rows {
		if len(valueGetters) == 0 {
			break
		}
		ids := make([]Cell, len(idGetters))
		for i, g := range idGetters {
			ids[i] = g(r)
		}
		for j, g := range valueGetters {
			long.Rows = append(long.Rows, LongRow{IDs: ids, Category: valueColumns[j], Value: g(r)})
		}
	}
	return long, nil
}
