package dataset

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadExtract(t *testing.T) {
	fsys := fstest.MapFS{
		"prices.csv": csvFile(
			"\ufeffDate,Region_Name,Area_Code,Average_Price,Index",
			"2020-01-01,Leeds,E08000035,\"150,000\",101.2",
			"",
			"2020-02-01,Leeds,E08000035,,102.5",
		),
	}

	ext, err := ReadExtract(context.Background(), fsys, Source{Path: "prices.csv"})
	require.NoError(t, err)

	assert.Equal(t, "prices.csv", ext.Source.Name())
	assert.Equal(t, []string{"Average_Price", "Index"}, ext.Columns)
	require.Equal(t, 2, ext.Len())

	first := ext.Rows[0]
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), first.Key.Date)
	assert.Equal(t, "Leeds", first.Key.RegionName)
	assert.Equal(t, "E08000035", first.Key.AreaCode)

	price, ok := first.Cells[0].Float()
	require.True(t, ok)
	assert.Equal(t, 150000.0, price)

	assert.False(t, ext.Rows[1].Cells[0].Valid, "empty cell should be missing")
}

func TestReadExtractDelimiters(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"semicolon", "Date;Region_Name;Area_Code;Price\n2020-01-01;Leeds;E1;1\n"},
		{"tab", "Date\tRegion_Name\tArea_Code\tPrice\n2020-01-01\tLeeds\tE1\t1\n"},
		{"ragged", "Date,Region_Name,Area_Code,Price\n2020-01-01,Leeds,E1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"x.csv": &fstest.MapFile{Data: []byte(tt.data)}}
			ext, err := ReadExtract(context.Background(), fsys, Source{Path: "x.csv"})
			require.NoError(t, err)
			assert.Equal(t, []string{"Price"}, ext.Columns)
			require.Equal(t, 1, ext.Len())
			assert.Equal(t, "Leeds", ext.Rows[0].Key.RegionName)
		})
	}
}

func TestReadExtractErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"nokey.csv":   csvFile("Date,Region_Name,Price", "2020-01-01,Leeds,1"),
		"baddate.csv": csvFile("Date,Region_Name,Area_Code,Price", "2020-01-01,Leeds,E1,1", "soon,Leeds,E1,2"),
		"dupe.csv":    csvFile("Date,Region_Name,Area_Code,Price,Price"),
		"empty.csv":   &fstest.MapFile{},
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadExtract(context.Background(), fsys, Source{ID: "gone", Path: "gone.csv"})
		var target *SourceUnavailableError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "gone", target.Source)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("missing key column", func(t *testing.T) {
		_, err := ReadExtract(context.Background(), fsys, Source{Path: "nokey.csv"})
		var target *MissingColumnError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, []string{ColumnAreaCode}, target.Columns)
	})

	t.Run("malformed date fails the source", func(t *testing.T) {
		_, err := ReadExtract(context.Background(), fsys, Source{Path: "baddate.csv"})
		var target *MalformedDateError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, 3, target.Line)
		assert.Equal(t, "soon", target.Value)
	})

	t.Run("duplicate header", func(t *testing.T) {
		_, err := ReadExtract(context.Background(), fsys, Source{Path: "dupe.csv"})
		assert.ErrorIs(t, err, ErrDuplicateColumn)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ReadExtract(context.Background(), fsys, Source{Path: "empty.csv"})
		assert.ErrorIs(t, err, ErrEmptySource)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ReadExtract(ctx, fsys, Source{Path: "nokey.csv"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReadExtractWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Date", "Region_Name", "Area_Code", "Sales_Volume"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2021-06-01", "Wales", "W92000004", 4210}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"2021-07-01", "Wales", "W92000004", 3988}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	fsys := fstest.MapFS{"Sales-2021.xlsx": &fstest.MapFile{Data: buf.Bytes()}}
	ext, err := ReadExtract(context.Background(), fsys, Source{Path: "Sales-2021.xlsx"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Sales_Volume"}, ext.Columns)
	require.Equal(t, 2, ext.Len())
	v, ok := ext.Rows[1].Cells[0].Float()
	require.True(t, ok)
	assert.Equal(t, 3988.0, v)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-01", " 2024-03-01 ", "2024-03-01T10:30:00Z", "2024-03-01 10:30:00", "01/03/2024", "2024-03"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "March 2024", "2024-13-01"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestSourceCollisionToken(t *testing.T) {
	assert.Equal(t, "Sales", Source{Path: "data/Sales-2025-06.csv"}.CollisionToken())
	assert.Equal(t, "prices", Source{Path: "prices.csv"}.CollisionToken())
	assert.Equal(t, "NewOld", Source{Path: "New-and-Old-2025-06.csv", Namespace: "NewOld"}.CollisionToken())
}
