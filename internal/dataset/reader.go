package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ctxCheckEvery is how many records are parsed between context checks.
const ctxCheckEvery = 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadExtract reads one source from fsys. Files ending in .xlsx are read
// from their first sheet; anything else is treated as delimited text.
func ReadExtract(ctx context.Context, fsys fs.FS, src Source) (*Extract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := fsys.Open(src.Path)
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Name(), Path: src.Path, Err: err}
	}
	defer f.Close()

	var records [][]string
	switch strings.ToLower(path.Ext(src.Path)) {
	case ".xlsx":
		records, err = readWorkbook(f)
	default:
		records, err = readDelimited(f)
	}
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Name(), Path: src.Path, Err: err}
	}

	table, err := buildTable(ctx, src, records)
	if err != nil {
		return nil, err
	}
	return &Extract{Source: src, Table: table}, nil
}

// readDelimited reads delimited text, sniffing the delimiter from the
// header line.
func readDelimited(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}
	return records, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// readWorkbook reads every row of the first sheet of a workbook.
func readWorkbook(r io.Reader) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// buildTable turns raw records into a keyed table. The first record is
// the header. Every key date must parse; the first failure aborts the
// whole source.
func buildTable(ctx context.Context, src Source, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("source %s: %w", src.Name(), ErrEmptySource)
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range records[0] {
		h = strings.TrimSpace(string(bytes.TrimPrefix([]byte(h), utf8BOM)))
		if seen[h] {
			return nil, fmt.Errorf("source %s: %w: %q", src.Name(), ErrDuplicateColumn, h)
		}
		seen[h] = true
		header[i] = h
	}

	keyPos := make(map[string]int, len(KeyColumns))
	var columns []string
	var valuePos []int
	for i, h := range header {
		if IsKeyColumn(h) {
			keyPos[h] = i
			continue
		}
		columns = append(columns, h)
		valuePos = append(valuePos, i)
	}

	var missing []string
	for _, k := range KeyColumns {
		if _, ok := keyPos[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Source: src.Name(), Columns: missing}
	}

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blank(rec) {
			continue
		}

		field := func(i int) string {
			if i < len(rec) {
				return rec[i]
			}
			return ""
		}

		rawDate := field(keyPos[ColumnDate])
		date, err := ParseDate(rawDate)
		if err != nil {
			return nil, &MalformedDateError{Source: src.Name(), Line: n + 2, Value: rawDate, Err: err}
		}

		cells := make([]Cell, len(valuePos))
		for j, pos := range valuePos {
			cells[j] = NewCell(field(pos))
		}
		rows = append(rows, Row{
			Key: Key{
				Date:       date,
				RegionName: strings.TrimSpace(field(keyPos[ColumnRegionName])),
				AreaCode:   strings.TrimSpace(field(keyPos[ColumnAreaCode])),
			},
			Cells: cells,
		})
	}

	return NewTable(columns, rows), nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
