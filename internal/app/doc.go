// Package app wires the HPI Pulse service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, HPI_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Build the merge cache, dataset service and websocket hub
//	4. Set up the chi router, middleware and handlers
//	5. Start the server, the source watcher and a background warm-up merge
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// Run blocks until SIGINT or SIGTERM, then shuts the server down, stops the
// watcher and the hub, and flushes telemetry. Initialization errors are
// returned to the caller; the package never calls os.Exit.
package app
