package dataset

import (
	"fmt"
	"strings"
	"time"
)

// Key column names shared by every extract.
const (
	ColumnDate       = "Date"
	ColumnRegionName = "Region_Name"
	ColumnAreaCode   = "Area_Code"
)

// DateLayout is the canonical rendering of a key date.
const DateLayout = "2006-01-02"

// KeyColumns lists the key columns in their canonical order.
var KeyColumns = []string{ColumnDate, ColumnRegionName, ColumnAreaCode}

// dateLayouts are the accepted spellings of a key date, tried in order.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2006-01",
}

// Key identifies one observation.
type Key struct {
	Date       time.Time
	RegionName string
	AreaCode   string
}

// String renders the key as "date|region|area".
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Date.Format(DateLayout), k.RegionName, k.AreaCode)
}

// id is the join identity of the key.
func (k Key) id() string {
	return k.Date.Format(DateLayout) + "\x00" + k.RegionName + "\x00" + k.AreaCode
}

// Less orders keys by date, then region name, then area code.
func (k Key) Less(other Key) bool {
	if !k.Date.Equal(other.Date) {
		return k.Date.Before(other.Date)
	}
	if k.RegionName != other.RegionName {
		return k.RegionName < other.RegionName
	}
	return k.AreaCode < other.AreaCode
}

// IsKeyColumn reports whether name is one of the key columns.
func IsKeyColumn(name string) bool {
	switch name {
	case ColumnDate, ColumnRegionName, ColumnAreaCode:
		return true
	}
	return false
}

// ParseDate parses a key date strictly. The time of day, if any, is dropped.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format %q", value)
}
