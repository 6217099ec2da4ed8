// Package validation checks the data and logs directories and each
// configured extract before the server starts reading them.
package validation
