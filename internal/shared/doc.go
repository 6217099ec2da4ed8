// Package shared holds code used by more than one package that belongs to
// no single layer.
//
// testutil provides the extract fixtures, a temp-dir writer for them and a
// capturing test logger. It must not import the dataset package, which
// uses it in its own tests.
package shared
