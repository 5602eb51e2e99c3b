package exporter

import (
	"fmt"
	"log/slog"

	"growthcurves/internal/config"
	"growthcurves/internal/growth"
)

// CentileExporter writes per-unit centile and disease overlay tables
type CentileExporter struct {
	paths  *config.Paths
	writer *CSVWriter
	logger *slog.Logger
}

// NewCentileExporter creates an exporter rooted at paths
func NewCentileExporter(paths *config.Paths, logger *slog.Logger) *CentileExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CentileExporter{
		paths:  paths,
		writer: NewCSVWriter(paths),
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// CentileHeaders returns the wide-layout header: covariate then one column per level
func CentileHeaders(covariate string, levels []float64) []string {
	headers := make([]string, 0, len(levels)+1)
	headers = append(headers, covariate)
	for _, l := range levels {
		headers = append(headers, formatLevel(l))
	}
	return headers
}

// CentileRecords converts a centile table to wide-layout CSV records
func CentileRecords(table *growth.CentileTable) [][]string {
	points := table.Wide()
	records := make([][]string, 0, len(points))
	for _, pt := range points {
		record := make([]string, 0, len(pt.Values)+1)
		record = append(record, formatFloat(pt.X))
		for _, v := range pt.Values {
			record = append(record, formatFloat(v))
		}
		records = append(records, record)
	}
	return records
}

// DiseaseHeaders is the header of the scored disease table
var DiseaseHeaders = []string{"x", "y", "value", "tissue", "percentile", "z"}

// DiseaseRecords converts overlay points to CSV records
func DiseaseRecords(overlay *growth.Overlay) [][]string {
	records := make([][]string, 0, len(overlay.Points))
	for _, p := range overlay.Points {
		records = append(records, []string{
			formatFloat(p.X),
			formatFloat(p.Y),
			formatFloat(p.Value),
			p.Tissue,
			formatFloat(p.Percentile),
			formatFloat(p.Z),
		})
	}
	return records
}

// ExportResult writes the centile table of res and, when present, its
// disease overlay. It returns the paths written.
func (e *CentileExporter) ExportResult(res *growth.Result) ([]string, error) {
	if res == nil || res.Centiles == nil {
		return nil, nil
	}
	u := res.Unit
	var written []string

	path := e.paths.CentilePath(u.Sex, u.Tissue, u.Biomarker)
	headers := CentileHeaders(res.Covariate, res.Centiles.Levels)
	if err := e.writer.WriteCSV(path, WriteOptions{Headers: headers, Records: CentileRecords(res.Centiles)}); err != nil {
		return written, fmt.Errorf("failed to export centiles for %s: %w", u, err)
	}
	written = append(written, path)

	if res.Overlay != nil && len(res.Overlay.Points) > 0 {
		path = e.paths.DiseasePath(u.Sex, u.Tissue, u.Biomarker)
		if err := e.writer.WriteCSV(path, WriteOptions{Headers: DiseaseHeaders, Records: DiseaseRecords(res.Overlay)}); err != nil {
			return written, fmt.Errorf("failed to export disease overlay for %s: %w", u, err)
		}
		written = append(written, path)
	}

	e.logger.Debug("centiles exported",
		slog.String("unit", u.String()),
		slog.Int("points", res.Centiles.Points()),
		slog.Int("files", len(written)))
	return written, nil
}

// ExportOutcomes writes the tables of every fitted outcome
func (e *CentileExporter) ExportOutcomes(outcomes []growth.UnitOutcome) ([]string, error) {
	var written []string
	for _, o := range outcomes {
		if o.Status != growth.UnitFitted {
			continue
		}
		paths, err := e.ExportResult(o.Result)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
