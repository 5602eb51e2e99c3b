// Package shared holds helpers used across growthcurves packages that do
// not belong to any single layer.
//
// The testutil subpackage provides a buffered slog handler for asserting
// logged diagnostics and seeded synthetic cohorts for fitting tests.
package shared
