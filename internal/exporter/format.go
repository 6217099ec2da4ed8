package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"hpipulse/internal/dataset"
)

// Format is an export encoding.
type Format string

// Supported formats
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Formats lists the supported formats as strings.
func Formats() []string {
	return []string{string(FormatCSV), string(FormatJSON)}
}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// WriteLong writes long in format f. JSON output is an array of objects
// keyed by column name.
func WriteLong(w io.Writer, f Format, long *dataset.LongTable, opts Options) error {
	if f == FormatJSON {
		return WriteJSON(w, long.Records())
	}
	return WriteCSV(w, long.Header(), long.Strings(), opts)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
