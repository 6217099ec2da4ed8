package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

// Fixture extract file names.
const (
	PropertyTypeFile = "Average-prices-Property-Type-2025-06.csv"
	CashMortgageFile = "Cash-mortgage-sales-2025-06.csv"
	SalesFile        = "Sales-2025-06.csv"
)

// FixtureSourceSpecs declares the fixture extracts in "id:namespace=path"
// form, base table first.
var FixtureSourceSpecs = []string{
	"property-type:PropertyType=" + PropertyTypeFile,
	"cash-mortgage:CashMortgage=" + CashMortgageFile,
	"sales:Sales=" + SalesFile,
}

// Fixture regions, as they appear in the extracts.
const (
	RegionUK    = "United Kingdom"
	RegionLeeds = "Leeds"
	RegionYork  = "York"
)

var fixtureExtracts = map[string][]string{
	PropertyTypeFile: {
		"Date,Region_Name,Area_Code,Detached_Average_Price,Semi_Detached_Average_Price,Terraced_Average_Price,Flat_Average_Price",
		"2024-01-01,Leeds,E08000035,350000,230000,180000,150000",
		"2024-02-01,Leeds,E08000035,352000,231000,181000,151000",
		"2024-01-01,United Kingdom,K02000001,450000,280000,240000,230000",
		"2024-02-01,United Kingdom,K02000001,452000,281000,241000,229000",
		"2024-01-01,York,E06000014,480000,300000,260000,190000",
	},
	CashMortgageFile: {
		"Date,Region_Name,Area_Code,Cash_Average_Price,Mortgage_Average_Price,Cash_Sales_Volume,Mortgage_Sales_Volume",
		"2024-01-01,Leeds,E08000035,210000,240000,300,500",
		"2024-02-01,Leeds,E08000035,212000,242000,310,520",
		"2024-01-01,United Kingdom,K02000001,270000,300000,25000,40000",
	},
	SalesFile: {
		"Date,Region_Name,Area_Code,Sales_Volume",
		"2024-01-01,Leeds,E08000035,800",
		"2024-02-01,Leeds,E08000035,830",
		"2024-01-01,United Kingdom,K02000001,65000",
		"2024-03-01,United Kingdom,K02000001,66000",
	},
}

// FixtureRowCount is the number of distinct keys across the fixture extracts.
const FixtureRowCount = 6

// ExtractContent returns the CSV text of a fixture extract.
func ExtractContent(name string) []byte {
	lines, ok := fixtureExtracts[name]
	if !ok {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// ExtractFS returns the fixture extracts as an in-memory filesystem.
func ExtractFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	modTime := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for name := range fixtureExtracts {
		fsys[name] = &fstest.MapFile{Data: ExtractContent(name), Mode: 0o644, ModTime: modTime}
	}
	return fsys
}

// WriteExtracts writes the fixture extracts into a fresh temporary
// directory and returns its path.
func WriteExtracts(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	for name := range fixtureExtracts {
		if err := os.WriteFile(filepath.Join(dir, name), ExtractContent(name), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
	return dir
}
