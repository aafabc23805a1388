// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers write through these helpers instead of raw http.ResponseWriter
// calls so JSON formatting and the error envelope stay consistent.
package httputil
