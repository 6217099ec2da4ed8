// Package files locates extract files in the data directory and tracks
// their on-disk identity.
//
// Discovery lists the extracts available in a directory. Fingerprint turns
// a list of source declarations into a cache key from file metadata alone,
// so an unchanged directory maps to the same key without reading any file.
// Watcher follows the data directory and reports settled changes to the
// extracts it cares about.
//
// Example usage:
//
//	discovery := files.NewDiscovery("/srv/hpi")
//	extracts, err := discovery.FindExtracts("data")
//
//	key, signatures := files.Fingerprint(os.DirFS("/srv/hpi/data"), sources)
package files
