package dataset

// Row is one keyed observation. Cells line up with Table.Columns.
type Row struct {
	Key   Key
	Cells []Cell
}

// Table is a wide table. Columns lists value columns only; the key
// columns are implicit and always present.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string]int
}

// NewTable builds a table and indexes its columns.
func NewTable(columns []string, rows []Row) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &Table{Columns: columns, Rows: rows, index: index}
}

// ColumnIndex returns the position of a value column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index != nil {
		i, ok := t.index[name]
		return i, ok
	}
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether name is a key column or a value column.
func (t *Table) HasColumn(name string) bool {
	if IsKeyColumn(name) {
		return true
	}
	_, ok := t.ColumnIndex(name)
	return ok
}

// AllColumns returns the key columns followed by the value columns.
func (t *Table) AllColumns() []string {
	all := make([]string, 0, len(KeyColumns)+len(t.Columns))
	all = append(all, KeyColumns...)
	return append(all, t.Columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Width returns the number of columns including the key columns.
func (t *Table) Width() int { return len(KeyColumns) + len(t.Columns) }

// Value returns the cell of row r under column, which may be a key column.
func (t *Table) Value(r Row, column string) (Cell, bool) {
	getter, ok := t.getter(column)
	if !ok {
		return Cell{}, false
	}
	return getter(r), true
}

// getter resolves a column name into an accessor once, so callers can
// avoid a lookup per row.
func (t *Table) getter(column string) (func(Row) Cell, bool) {
	switch column {
	case ColumnDate:
		return func(r Row) Cell { return Cell{Raw: r.Key.Date.Format(DateLayout), Valid: true} }, true
	case ColumnRegionName:
		return func(r Row) Cell { return NewCell(r.Key.RegionName) }, true
	case ColumnAreaCode:
		return func(r Row) Cell { return NewCell(r.Key.AreaCode) }, true
	}
	i, ok := t.ColumnIndex(column)
	if !ok {
		return nil, false
	}
	return func(r Row) Cell {
		if i >= len(r.Cells) {
			return Cell{}
		}
		return r.Cells[i]
	}, true
}

// Head returns a table holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return NewTable(t.Columns, t.Rows[:n:n])
}

// Records renders each row as a column-name keyed map for JSON encoding.
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(map[string]any, t.Width())
		rec[ColumnDate] = r.Key.Date.Format(DateLayout)
		rec[ColumnRegionName] = r.Key.RegionName
		rec[ColumnAreaCode] = r.Key.AreaCode
		for i, c := range t.Columns {
			if i < len(r.Cells) {
				rec[c] = r.Cells[i]
			} else {
				rec[c] = Cell{}
			}
		}
		records = append(records, rec)
	}
	return records
}
