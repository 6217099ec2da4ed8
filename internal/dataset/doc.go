// Package dataset unifies periodic housing-market extracts into one table.
//
// Every extract shares the composite key (Date, Region_Name, Area_Code).
// The package reads extracts, outer-joins them on that key and reshapes
// sibling value columns into long form for multi-series charts.
//
// # Data Flow
//
//	CSV/XLSX extract → ReadExtract → Merge (outer join on Key) → Table
//	Table → FilterRegion → Melt → LongTable
//
// # Collisions
//
// When an incoming extract contributes a value column whose name already
// exists in the running table, the incoming column is renamed to
// "<column>_<namespace>". The namespace is declared per source; when a
// source does not declare one it falls back to the file name up to its
// first '-'.
//
// # Error Handling
//
// Loading returns typed errors (SourceUnavailableError, MalformedDateError,
// MissingColumnError). Merge treats a failing base source as fatal and
// turns failures of later sources into Diagnostics.
//
// Tables are never mutated after construction; derived views share
// column and cell slices with the table they came from.
package dataset
