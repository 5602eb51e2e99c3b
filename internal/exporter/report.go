package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"growthcurves/internal/growth"
)

// ReportMeta describes the run a report belongs to
type ReportMeta struct {
	GeneratedAt time.Time
	Duration    time.Duration
	InputFile   string
	DiseaseFile string
	Mode        growth.Mode
	CleanedWith growth.CleaningStrategy
}

type reportKey struct {
	tissue    string
	biomarker string
}

// WriteReport renders a plain-text report with one section per tissue and
// biomarker and one value column per sex.
func WriteReport(w io.Writer, meta ReportMeta, outcomes []growth.UnitOutcome) error {
	summary := growth.Summarize(outcomes)
	fmt.Fprintf(w, "Growth curve report\n")
	fmt.Fprintf(w, "Generated:  %s\n", meta.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Run time:   %s\n", meta.Duration.Round(time.Millisecond))
	if meta.InputFile != "" {
		fmt.Fprintf(w, "Input:      %s\n", meta.InputFile)
	}
	if meta.DiseaseFile != "" {
		fmt.Fprintf(w, "Disease:    %s\n", meta.DiseaseFile)
	}
	if meta.Mode != "" {
		fmt.Fprintf(w, "Mode:       %s\n", meta.Mode)
	}
	if meta.CleanedWith != "" {
		fmt.Fprintf(w, "Cleaning:   %s\n", meta.CleanedWith)
	}
	fmt.Fprintf(w, "Units:      %d fitted, %d failed, %d skipped\n", summary.Fitted, summary.Failed, summary.Skipped)

	groups := make(map[reportKey][]growth.UnitOutcome)
	var keys []reportKey
	for _, o := range outcomes {
		k := reportKey{tissue: o.Unit.Tissue, biomarker: o.Unit.Biomarker}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], o)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].tissue != keys[j].tissue {
			return keys[i].tissue < keys[j].tissue
		}
		return keys[i].biomarker < keys[j].biomarker
	})

	for _, k := range keys {
		if err := writeSection(w, k, groups[k]); err != nil {
			return err
		}
	}
	return nil
}

func writeSection(w io.Writer, k reportKey, outcomes []growth.UnitOutcome) error {
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Unit.Sex < outcomes[j].Unit.Sex })

	fmt.Fprintf(w, "\n== %s / %s ==\n", k.tissue, k.biomarker)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"Parameter"}
	for _, o := range outcomes {
		header = append(header, o.Unit.Sex)
	}
	writeRow(tw, header)

	rows := [][]string{
		reportRow("Status", outcomes, func(o growth.UnitOutcome) string { return string(o.Status) }),
		reportRow("Family", outcomes, fitted(func(r *growth.Result) string { return r.Family })),
		reportRow("Smoothing", outcomes, fitted(func(r *growth.Result) string {
			if r.Smoothing == nil {
				return "-"
			}
			return r.Smoothing.Description
		})),
		reportRow("Rows", outcomes, fitted(func(r *growth.Result) string { return fmt.Sprintf("%d", r.Rows) })),
		reportRow("Log response", outcomes, fitted(func(r *growth.Result) string { return fmt.Sprintf("%t", r.LogTransformed) })),
		reportRow("Global deviance", outcomes, fitted(func(r *growth.Result) string { return formatFixed(r.GlobalDeviance, 3) })),
		reportRow("AIC", outcomes, fitted(func(r *growth.Result) string { return formatFixed(r.AIC, 3) })),
		reportRow("Effective df", outcomes, fitted(func(r *growth.Result) string { return formatFixed(r.EDF, 2) })),
		reportRow("Candidates", outcomes, fitted(func(r *growth.Result) string {
			return fmt.Sprintf("%d/%d", r.ConvergedCandidates, r.Candidates)
		})),
	}
	for _, name := range coefficientNames(outcomes) {
		name := name
		rows = append(rows, reportRow(name, outcomes, fitted(func(r *growth.Result) string {
			v, ok := r.Coefficients[name]
			if !ok {
				return "-"
			}
			return formatFixed(v, 4)
		})))
	}
	for _, row := range rows {
		writeRow(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, o := range outcomes {
		if o.Status != growth.UnitFitted && o.Err != nil {
			fmt.Fprintf(w, "  %s\n", o.Diagnostic())
		}
	}
	return nil
}

func reportRow(name string, outcomes []growth.UnitOutcome, value func(growth.UnitOutcome) string) []string {
	row := []string{name}
	for _, o := range outcomes {
		row = append(row, value(o))
	}
	return row
}

func fitted(value func(*growth.Result) string) func(growth.UnitOutcome) string {
	return func(o growth.UnitOutcome) string {
		if o.Result == nil {
			return "-"
		}
		return value(o.Result)
	}
}

func coefficientNames(outcomes []growth.UnitOutcome) []string {
	seen := make(map[string]bool)
	var names []string
	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		for name := range o.Result.Coefficients {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func writeRow(w io.Writer, cells []string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

// WriteReportFile writes the report to path
func WriteReportFile(path string, meta ReportMeta, outcomes []growth.UnitOutcome) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteReport(f, meta, outcomes); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
