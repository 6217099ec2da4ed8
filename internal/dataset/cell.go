package dataset

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// thousandsPattern matches numbers grouped with comma thousands separators.
// Any other comma, such as a decimal comma, makes a cell non-numeric.
var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Cell is one value of a wide or long table. Empty source text is missing.
type Cell struct {
	Raw   string
	Valid bool
}

// NewCell builds a cell from source text.
func NewCell(raw string) Cell {
	raw = strings.TrimSpace(raw)
	return Cell{Raw: raw, Valid: raw != ""}
}

// Float returns the numeric value of the cell. Comma thousands separators
// are tolerated ("150,000"); "1,5" is not a number. It reports false for
// missing or non-numeric cells.
func (c Cell) Float() (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	text := c.Raw
	if strings.Contains(text, ",") {
		if !thousandsPattern.MatchString(text) {
			return 0, false
		}
		text = strings.ReplaceAll(text, ",", "")
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String returns the source text, or "" when missing.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Raw
}

// MarshalJSON encodes missing cells as null and numeric cells as numbers.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	if f, ok := c.Float(); ok {
		return json.Marshal(f)
	}
	return json.Marshal(c.Raw)
}

// missingCells returns n missing cells.
func missingCells(n int) []Cell {
	return make([]Cell, n)
}
