// Package middleware holds the HTTP middleware chain of the fitting service:
// request IDs, structured request logging, panic recovery, rate limiting,
// body limits, OpenTelemetry instrumentation and request validation.
package middleware
