package ingest

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/growth"
)

// GroupColumn is the cohort column used by group filters
const GroupColumn = "Cohort"

// DefaultTissues are used when a cohort spec names none
var DefaultTissues = []string{"GM", "WM"}

// BiomarkerColumn is a cohort column named <tissue>_<biomarker>
type BiomarkerColumn struct {
	Name      string
	Tissue    string
	Biomarker string
}

// CohortSpec selects the units to build from a normative workbook
type CohortSpec struct {
	AgeColumn  string
	Tissues    []string
	Biomarkers []string
	// Groups keeps only rows whose Cohort column is listed; empty keeps all.
	Groups []string
}

// Cohort is a normative workbook resolved against a CohortSpec
type Cohort struct {
	Sheet     *Sheet
	AgeColumn string
	SexColumn string
	Columns   []BiomarkerColumn
	// Missing lists expected <tissue>_<biomarker> columns that are absent
	Missing []string
}

// LoadCohort reads and resolves a normative workbook
func LoadCohort(path string, spec CohortSpec, logger *slog.Logger) (*Cohort, error) {
	sheet, err := ReadSheet(path, "")
	if err != nil {
		return nil, err
	}
	return ResolveCohort(sheet, spec, logger)
}

// ResolveCohort finds the sex column and the biomarker columns of sheet.
// It fails when the age or sex column is missing or when none of the
// expected biomarker columns exists. Rows without a sex label are dropped.
func ResolveCohort(sheet *Sheet, spec CohortSpec, logger *slog.Logger) (*Cohort, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(spec.Biomarkers) == 0 {
		return nil, apperrors.NewMissingInput("at least one biomarker is required")
	}
	if len(spec.Tissues) == 0 {
		spec.Tissues = DefaultTissues
	}
	if sheet.ColumnIndex(spec.AgeColumn) < 0 {
		return nil, apperrors.NewMissingColumn("cohort", spec.AgeColumn)
	}
	sexColumn, ok := sheet.FindColumn("sex", "gender")
	if !ok {
		return nil, apperrors.NewMissingColumn("cohort", "sex")
	}

	if len(spec.Groups) > 0 {
		if sheet.ColumnIndex(GroupColumn) < 0 {
			return nil, apperrors.NewMissingColumn("cohort", GroupColumn)
		}
		sheet = sheet.Filter(func(i int) bool {
			return slices.Contains(spec.Groups, sheet.Cell(i, GroupColumn))
		})
	}
	sheet = sheet.Filter(func(i int) bool { return sheet.Cell(i, sexColumn) != "" })

	c := &Cohort{Sheet: sheet, AgeColumn: spec.AgeColumn, SexColumn: sexColumn}
	for _, tissue := range spec.Tissues {
		for _, biomarker := range spec.Biomarkers {
			name := tissue + "_" + biomarker
			if sheet.ColumnIndex(name) < 0 {
				c.Missing = append(c.Missing, name)
				continue
			}
			c.Columns = append(c.Columns, BiomarkerColumn{Name: name, Tissue: tissue, Biomarker: biomarker})
		}
	}
	if len(c.Columns) == 0 {
		return nil, apperrors.NewMissingColumn("cohort", strings.Join(c.Missing, ", "))
	}
	if len(c.Missing) > 0 {
		logger.Warn("expected biomarker columns not found", slog.Any("columns", c.Missing))
	}

	logger.Info("cohort loaded",
		slog.String("sheet", sheet.Name),
		slog.Int("rows", len(sheet.Rows)),
		slog.String("sex_column", sexColumn),
		slog.Int("biomarker_columns", len(c.Columns)),
		slog.Any("sexes", c.Sexes()))
	return c, nil
}

// Sexes returns the distinct sex labels in sorted order
func (c *Cohort) Sexes() []string {
	seen := map[string]bool{}
	var out []string
	for i := range c.Sheet.Rows {
		s := c.Sheet.Cell(i, c.SexColumn)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Requests builds one pipeline request per (sex, tissue, biomarker) unit,
// ordered by sex, then tissue, then biomarker as listed in the spec.
// Disease rows are attached per unit when disease is not nil.
func (c *Cohort) Requests(disease *Disease) ([]growth.Request, error) {
	var reqs []growth.Request
	for _, sex := range c.Sexes() {
		rows := c.Sheet.Filter(func(i int) bool { return c.Sheet.Cell(i, c.SexColumn) == sex })
		for _, col := range c.Columns {
			frame, err := rows.Frame(c.AgeColumn, col.Name)
			if err != nil {
				return nil, err
			}
			req := growth.Request{
				Unit:         growth.Unit{Sex: sex, Tissue: col.Tissue, Biomarker: col.Biomarker},
				Observations: frame,
				Covariate:    c.AgeColumn,
				Response:     col.Name,
			}
			if disease != nil {
				df, err := disease.Frame(sex, col.Biomarker, c.AgeColumn, col.Name)
				if err != nil {
					return nil, fmt.Errorf("disease rows for %s: %w", req.Unit, err)
				}
				req.Disease = df
			}
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}
