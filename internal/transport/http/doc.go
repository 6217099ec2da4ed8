// Package http implements the REST handlers of the HPI Pulse service.
// Handlers stay thin: they parse and validate the request, call the
// dataset or health service, and render the result.
//
// # Routes
//
//	GET  /api/dataset                          overview (?head=N)
//	GET  /api/dataset/status                   last merge and cache counters
//	POST /api/dataset/refresh                  drop the cached merge and rebuild
//	GET  /api/dataset/regions                  region list, nationwide first
//	GET  /api/dataset/regions/{region}/summary describe one region
//	GET  /api/dataset/views                    view catalog
//	GET  /api/dataset/views/{view}             melted view (?region=R&format=json|csv)
//	POST /api/dataset/melt                     ad hoc melt (?format=json|csv)
//
// # Errors
//
// Every failure is rendered as an RFC 7807 problem document by
// errors.ErrorHandler. Unknown regions and views map to 404, missing melt
// columns and label conflicts to 422, and an unreadable base source to 503.
//
// # Output
//
// CSV responses are streamed with encoding/csv. The header row is the id
// columns followed by the category and value labels.
package http
