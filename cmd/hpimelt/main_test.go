package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpipulse/internal/shared/testutil"
)

func fixtureArgs(t *testing.T, extra ...string) []string {
	t.Helper()
	args := []string{"-data", testutil.WriteExtracts(t)}
	for _, spec := range testutil.FixtureSourceSpecs {
		args = append(args, "-source", spec)
	}
	return append(args, extra...)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunView(t *testing.T) {
	code, out, errOut := runCLI(t, fixtureArgs(t, "-view", "property-type", "-region", "Leeds")...)
	require.Equal(t, exitOK, code, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+2*4)
	assert.Equal(t, "Date,Property Type,Average Price", lines[0])
	assert.Equal(t, "2024-01-01,Detached_Average_Price,350000", lines[1])
	assert.Equal(t, "2024-02-01,Flat_Average_Price,151000", lines[8])
}

func TestRunWritesFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "exports", "leeds.csv")
	code, out, errOut := runCLI(t, fixtureArgs(t, "-view", "property-type", "-region", "Leeds", "-out", target, "-bom")...)
	require.Equal(t, exitOK, code, errOut)
	assert.Empty(t, out)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "\ufeffDate,Property Type,Average Price\n"))
	assert.Contains(t, string(content), "2024-01-01,Detached_Average_Price,350000")
}

func TestRunViewDefaultsToNationwide(t *testing.T) {
	code, out, errOut := runCLI(t, fixtureArgs(t, "-view", "sales-volume-total")...)
	require.Equal(t, exitOK, code, errOut)

	assert.Equal(t,
		"Date,Measure,Number of Sales\n"+
			"2024-01-01,Sales_Volume,65000\n"+
			"2024-02-01,Sales_Volume,\n"+
			"2024-03-01,Sales_Volume,66000\n",
		out)
}

func TestRunAdHocMeltJSON(t *testing.T) {
	code, out, errOut := runCLI(t, fixtureArgs(t,
		"-values", "Cash_Average_Price,Mortgage_Average_Price",
		"-region", "Leeds",
		"-category", "Purchase",
		"-value-label", "Price",
		"-format", "json")...)
	require.Equal(t, exitOK, code, errOut)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "Cash_Average_Price", rows[0]["Purchase"])
	assert.Equal(t, float64(210000), rows[0]["Price"])
	assert.Equal(t, "2024-01-01", rows[0]["Date"])
}

func TestRunEmptyValueList(t *testing.T) {
	code, out, errOut := runCLI(t, fixtureArgs(t, "-values", "")...)
	require.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "Date,variable,value\n", out)
}

func TestRunListRegions(t *testing.T) {
	code, out, errOut := runCLI(t, fixtureArgs(t, "-list", "regions")...)
	require.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "Region_Name\nUnited Kingdom\nLeeds\nYork\n", out)
}

func TestRunListViews(t *testing.T) {
	code, out, errOut := runCLI(t, fixtureArgs(t, "-list", "views", "-format", "json")...)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, `"id": "property-type"`)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{name: "no mode", args: fixtureArgs(t), code: exitUsage, want: "one of -view"},
		{name: "bad format", args: fixtureArgs(t, "-view", "property-type", "-format", "xml"), code: exitUsage, want: "unsupported format"},
		{name: "view and values", args: fixtureArgs(t, "-view", "property-type", "-values", "x"), code: exitUsage, want: "mutually exclusive"},
		{name: "unknown view", args: fixtureArgs(t, "-view", "rainfall"), code: exitFatal, want: "view not found"},
		{name: "unknown region", args: fixtureArgs(t, "-view", "property-type", "-region", "Atlantis"), code: exitFatal, want: "region not found"},
		{name: "missing value column", args: fixtureArgs(t, "-values", "Nope"), code: exitFatal, want: "Nope"},
		{name: "missing base source", args: []string{"-data", t.TempDir(), "-source", "absent.csv", "-list", "regions"}, code: exitFatal, want: "absent.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Date", "Region_Name"}, splitList(" Date, ,Region_Name "))
	assert.Nil(t, splitList(""))
}
