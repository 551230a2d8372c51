// Package errs define custom error types and utilities.
//
// Its purpose is to create specific error structures..
// (e.g. FieldErrors for forms or HTTPError for API responses)..
// to ensure the client receive meaningful, actionable, and consistent..
// error messages.
//
// Every failure that crosses the HTTP boundary is one of a closed set of
// kinds (client input, not found, server I/O, configuration, CORS rejection).
// Each kind carries its status code, a message that is safe to show to
// clients, and optionally the underlying cause (with its stack trace) that
// is only ever logged or shown outside production.
package errs
