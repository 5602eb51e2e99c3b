// Package app wires the growth curve service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, file and environment
//  2. Initialize logging and OpenTelemetry
//  3. Build the fitting pipeline from the pipeline configuration
//  4. Set up HTTP handlers and middleware
//  5. Serve until interrupted, then shut down gracefully
//
// RunFitJob is the batch entry point: it reads the cohort workbook, fits
// every (sex, tissue, biomarker) unit and writes the exported outputs.
package app
