// Package exporter writes long tables as CSV or JSON.
//
// StreamWriter writes CSV rows to any io.Writer as they are produced, with
// an optional UTF-8 BOM so Excel recognises the encoding. WriteLong picks the
// encoding from a Format, and CSVWriter.WriteFile saves an export under a
// base directory.
//
//	w, err := exporter.NewStreamWriter(resp, long.Header(), exporter.Options{})
//	for _, rec := range long.Strings() {
//	    if err := w.WriteRecord(rec); err != nil {
//	        return err
//	    }
//	}
//	return w.Close()
package exporter
