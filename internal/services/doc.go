// Package services is the presentation-facing layer of HPI Pulse. It sits
// between the HTTP handlers and the dataset package.
//
// DatasetService owns the merged dataset. It fingerprints the configured
// extracts, memoizes the merge per fingerprint and answers the questions
// the dashboard asks: an overview of the unified table, the list of
// regions, per-region statistics and the long-form chart views.
//
//	svc, err := services.NewDatasetService(fsys, services.DatasetConfig{
//	    Sources: cfg.Dataset.Sources,
//	}, services.DatasetDeps{Cache: c, Logger: logger})
//	view, err := svc.View(ctx, "property-type", "United Kingdom")
//
// Diagnostics for skipped sources are logged and, when a Notifier is
// wired, published as non-blocking notices.
//
// HealthService reports liveness, readiness and build information.
package services
