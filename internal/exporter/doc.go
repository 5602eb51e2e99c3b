// Package exporter writes the outputs of a growth curve batch.
//
// CSVWriter: Core CSV writing with optional UTF-8 BOM for Excel
// compatibility. Relative paths resolve under the output directory.
//
// CentileExporter: Writes one wide-layout centile table per fitted unit
// (covariate, C3, C15, C50, C85, C97) and the scored disease points when
// an overlay exists.
//
// WriteResults and WriteReport: The JSON results document and the
// plain-text report grouped by tissue and biomarker.
//
// Example usage:
//
//	paths := config.NewPaths("output")
//	centiles := exporter.NewCentileExporter(paths, logger)
//	if _, err := centiles.ExportOutcomes(outcomes); err != nil {
//		return err
//	}
//	err := exporter.WriteResults(paths.ResultsFile, outcomes)
package exporter
