// Package http exposes the fitting pipeline over HTTP.
//
// Handlers stay thin: they decode and validate the request, hand it to the
// pipeline and render the result. Errors are rendered as RFC 7807 problem
// documents by errors.ErrorHandler.
//
// Routes:
//
//	POST /api/v1/fit    fit one unit and return its centile curves
//	GET  /api/health    liveness and version
//	GET  /api/version   build information
//	GET  /metrics       Prometheus scrape endpoint, when metrics are enabled
package http
