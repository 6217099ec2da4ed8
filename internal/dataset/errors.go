package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSources is returned by Merge when it is given no sources.
	ErrNoSources = errors.New("no sources to merge")
	// ErrEmptySource is returned for a source without a header row.
	ErrEmptySource = errors.New("source has no header row")
	// ErrDuplicateColumn is returned for a source whose header repeats a column.
	ErrDuplicateColumn = errors.New("duplicate column in header")
	// ErrLabelConflict is returned when melt labels clash with id columns.
	ErrLabelConflict = errors.New("melt labels conflict with id columns")
)

// SourceUnavailableError reports a source that cannot be located or read.
type SourceUnavailableError struct {
	Source string
	Path   string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable (%s): %v", e.Source, e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// MalformedDateError reports a key date that cannot be parsed. Line is the
// 1-based record number in the source, counting the header as line 1.
type MalformedDateError struct {
	Source string
	Line   int
	Value  string
	Err    error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("source %s line %d: malformed date %q: %v", e.Source, e.Line, e.Value, e.Err)
}

func (e *MalformedDateError) Unwrap() error { return e.Err }

// MissingColumnError reports columns absent from a source header or from
// the table handed to Melt. Source is empty in the latter case.
type MissingColumnError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	cols := strings.Join(e.Columns, ", ")
	if e.Source != "" {
		return fmt.Sprintf("source %s: missing column(s): %s", e.Source, cols)
	}
	return fmt.Sprintf("missing column(s): %s", cols)
}

// ColumnCollisionError reports a collision that survives renaming.
type ColumnCollisionError struct {
	Source string
	Column string
}

func (e *ColumnCollisionError) Error() string {
	return fmt.Sprintf("source %s: column %q already exists after renaming", e.Source, e.Column)
}
