package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"growthcurves/internal/config"
	"growthcurves/internal/exporter"
	"growthcurves/internal/growth"
	"growthcurves/internal/ingest"
	"growthcurves/internal/validation"
)

// FitJob describes one batch run over a cohort workbook
type FitJob struct {
	InputFile   string
	DiseaseFile string
	Cohort      ingest.CohortSpec
	OutputDir   string
}

// FitReport summarizes a finished batch run
type FitReport struct {
	Outcomes []growth.UnitOutcome
	Summary  growth.BatchSummary
	Files    []string
	Duration time.Duration
}

// RunFitJob reads the workbooks, fits every unit with pipeline and writes
// the centile tables, results document and text report under the output
// directory. Unit failures are reported in the outcomes, not as an error.
func RunFitJob(ctx context.Context, pipeline *growth.Pipeline, job FitJob, logger *slog.Logger) (*FitReport, error) {
	start := time.Now()
	logger = logger.With(slog.String("component", "fit_job"))

	files := validation.NewFileValidator(logger)
	for _, path := range []string{job.InputFile, job.DiseaseFile} {
		if path == "" {
			continue
		}
		if err := files.ValidateWorkbook(path); err != nil {
			return nil, err
		}
	}
	if err := files.ValidateOutputDirectory(job.OutputDir); err != nil {
		return nil, err
	}

	cohort, err := ingest.LoadCohort(job.InputFile, job.Cohort, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load cohort %s: %w", job.InputFile, err)
	}

	var disease *ingest.Disease
	if job.DiseaseFile != "" {
		disease, err = ingest.LoadDisease(job.DiseaseFile, job.Cohort.AgeColumn, pipeline.Options().TissueColumn, job.Cohort.Biomarkers, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load disease data %s: %w", job.DiseaseFile, err)
		}
	}

	reqs, err := cohort.Requests(disease)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "fit job started",
		slog.String("input", job.InputFile),
		slog.Int("units", len(reqs)),
		slog.Bool("disease", disease != nil))

	outcomes := pipeline.RunBatch(ctx, reqs)
	report := &FitReport{
		Outcomes: outcomes,
		Summary:  growth.Summarize(outcomes),
	}

	paths := config.NewPaths(job.OutputDir)
	if err := paths.EnsureDirectories(); err != nil {
		return report, err
	}

	written, err := exporter.NewCentileExporter(paths, logger).ExportOutcomes(outcomes)
	report.Files = written
	if err != nil {
		return report, err
	}

	if err := exporter.WriteResults(paths.ResultsFile, outcomes); err != nil {
		return report, err
	}
	report.Files = append(report.Files, paths.ResultsFile)

	report.Duration = time.Since(start)
	opts := pipeline.Options()
	meta := exporter.ReportMeta{
		GeneratedAt: time.Now(),
		Duration:    report.Duration,
		InputFile:   job.InputFile,
		DiseaseFile: job.DiseaseFile,
		Mode:        opts.Mode,
		CleanedWith: opts.Cleaning,
	}
	if err := exporter.WriteReportFile(paths.ReportFile, meta, outcomes); err != nil {
		return report, err
	}
	report.Files = append(report.Files, paths.ReportFile)

	logger.InfoContext(ctx, "fit job finished",
		slog.Int("fitted", report.Summary.Fitted),
		slog.Int("failed", report.Summary.Failed),
		slog.Int("skipped", report.Summary.Skipped),
		slog.Int("files", len(report.Files)),
		slog.Duration("duration", report.Duration))
	return report, nil
}
