// Package validation checks run inputs on disk before any work starts.
package validation
