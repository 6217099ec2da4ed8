package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel extract reads when Options leaves it unset.
const DefaultConcurrency = 4

// DiagnosticKind classifies a skipped source.
type DiagnosticKind string

const (
	DiagnosticSourceUnavailable DiagnosticKind = "source_unavailable"
	DiagnosticMalformedDate     DiagnosticKind = "malformed_date"
	DiagnosticMissingColumn     DiagnosticKind = "missing_column"
	DiagnosticColumnCollision   DiagnosticKind = "column_collision"
	DiagnosticInvalidSource     DiagnosticKind = "invalid_source"
)

// Diagnostic records a source that was skipped during a merge.
type Diagnostic struct {
	Source  string         `json:"source"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

// MergeResult is the unified table plus what happened building it.
type MergeResult struct {
	Table       *Table       `json:"-"`
	Sources     []string     `json:"sources"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Options tunes Merge.
type Options struct {
	// Concurrency bounds how many extracts are read at once.
	Concurrency int
	Logger      *slog.Logger
}

// Merge reads every source and outer-joins them on Key in declared order.
//
// The first source is the base table; if it cannot be loaded the merge
// fails. Any later source that cannot be loaded, or whose columns still
// collide after renaming, is skipped and reported as a Diagnostic.
// Duplicate keys fan out into the cross product of their rows. Rows of the
// result are ordered by Key.
func Merge(ctx context.Context, fsys fs.FS, sources []Source, opts Options) (*MergeResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	extracts, loadErrs, err := readAll(ctx, fsys, sources, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	base := sources[0]
	if loadErrs[0] != nil {
		return nil, fmt.Errorf("failed to load base source %s: %w", base.Name(), loadErrs[0])
	}

	result := &MergeResult{Sources: []string{base.Name()}}
	unified := extracts[0].Table
	logger.DebugContext(ctx, "base extract loaded",
		slog.String("source", base.Name()),
		slog.Int("rows", unified.Len()),
		slog.Int("columns", len(unified.Columns)))

	for i := 1; i < len(sources); i++ {
		src := sources[i]
		if loadErrs[i] != nil {
			d := diagnose(src, loadErrs[i])
			result.Diagnostics = append(result.Diagnostics, d)
			logger.WarnContext(ctx, "skipping source",
				slog.String("source", d.Source),
				slog.String("kind", string(d.Kind)),
				slog.String("error", d.Message))
			continue
		}

		joined, err := outerJoin(unified, extracts[i])
		if err != nil {
			d := diagnose(src, err)
			result.Diagnostics = append(result.Diagnostics, d)
			logger.WarnContext(ctx, "skipping source",
				slog.String("source", d.Source),
				slog.String("kind", string(d.Kind)),
				slog.String("error", d.Message))
			continue
		}
		unified = joined
		result.Sources = append(result.Sources, src.Name())
		logger.DebugContext(ctx, "extract merged",
			slog.String("source", src.Name()),
			slog.Int("rows", unified.Len()),
			slog.Int("columns", len(unified.Columns)))
	}

	rows := make([]Row, len(unified.Rows))
	copy(rows, unified.Rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key.Less(rows[j].Key) })
	result.Table = NewTable(unified.Columns, rows)

	return result, nil
}

// readAll reads every source concurrently. Per-source failures are
// returned positionally; only context cancellation aborts the whole read.
func readAll(ctx context.Context, fsys fs.FS, sources []Source, concurrency int) ([]*Extract, []error, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	extracts := make([]*Extract, len(sources))
	loadErrs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, src := range sources {
		g.Go(func() error {
			ext, err := ReadExtract(gctx, fsys, src)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				loadErrs[i] = err
				return nil
			}
			extracts[i] = ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return extracts, loadErrs, nil
}

// outerJoin joins right onto left on Key. Left rows keep their order;
// right rows with keys unknown to left follow in their own order.
func outerJoin(left *Table, right *Extract) (*Table, error) {
	names, err := incomingNames(left, right)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(left.Columns)+len(names))
	columns = append(columns, left.Columns...)
	columns = append(columns, names...)

	byKey := make(map[string][]int, len(right.Rows))
	for i, r := range right.Rows {
		id := r.Key.id()
		byKey[id] = append(byKey[id], i)
	}

	rows := make([]Row, 0, len(left.Rows)+len(right.Rows))
	matched := make(map[string]bool, len(byKey))
	for _, lr := range left.Rows {
		id := lr.Key.id()
		idx, ok := byKey[id]
		if !ok {
			rows = append(rows, Row{Key: lr.Key, Cells: joinCells(lr.Cells, missingCells(len(names)))})
			continue
		}
		matched[id] = true
		for _, ri := range idx {
			rows = append(rows, Row{Key: lr.Key, Cells: joinCells(lr.Cells, right.Rows[ri].Cells)})
		}
	}
	for _, rr := range right.Rows {
		if matched[rr.Key.id()] {
			continue
		}
		rows = append(rows, Row{Key: rr.Key, Cells: joinCells(missingCells(len(left.Columns)), rr.Cells)})
	}

	return NewTable(columns, rows), nil
}

// incomingNames resolves the output names of right's value columns.
func incomingNames(left *Table, right *Extract) ([]string, error) {
	token := right.Source.CollisionToken()
	taken := make(map[string]bool, len(left.Columns)+len(right.Columns))
	for _, c := range left.Columns {
		taken[c] = true
	}
	for _, c := range right.Columns {
		taken[c] = true
	}

	names := make([]string, len(right.Columns))
	for i, c := range right.Columns {
		if _, inLeft := left.ColumnIndex(c); !inLeft {
			names[i] = c
			continue
		}
		renamed := c + "_" + token
		if taken[renamed] {
			return nil, &ColumnCollisionError{Source: right.Source.Name(), Column: renamed}
		}
		taken[renamed] = true
		names[i] = renamed
	}
	return names, nil
}

func joinCells(a, b []Cell) []Cell {
	out := make([]Cell, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func diagnose(src Source, err error) Diagnostic {
	d := Diagnostic{Source: src.Name(), Kind: DiagnosticInvalidSource, Message: err.Error(), Err: err}

	var unavailable *SourceUnavailableError
	var malformed *MalformedDateError
	var missing *MissingColumnError
	var collision *ColumnCollisionError
	switch {
	case errors.As(err, &unavailable):
		d.Kind = DiagnosticSourceUnavailable
	case errors.As(err, &malformed):
		d.Kind = DiagnosticMalformedDate
	case errors.As(err, &missing):
		d.Kind = DiagnosticMissingColumn
	case errors.As(err, &collision):
		d.Kind = DiagnosticColumnCollision
	}
	return d
}
