package dataset

import "sort"

// FilterRegion returns the rows whose region name equals region exactly.
// Columns are unchanged; an unknown region yields an empty table.
func FilterRegion(t *Table, region string) *Table {
	rows := make([]Row, 0)
	for _, r := range t.Rows {
		if r.Key.RegionName == region {
			rows = append(rows, r)
		}
	}
	return NewTable(t.Columns, rows)
}

// Regions returns the distinct region names of t in ascending order.
func Regions(t *Table) []string {
	seen := make(map[string]struct{})
	for _, r := range t.Rows {
		seen[r.Key.RegionName] = struct{}{}
	}
	regions := make([]string, 0, len(seen))
	for name := range seen {
		regions = append(regions, name)
	}
	sort.Strings(regions)
	return regions
}
