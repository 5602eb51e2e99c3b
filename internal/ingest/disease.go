package ingest

import (
	"log/slog"
	"math"
	"strings"

	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/growth"
)

// DefaultTissueColumn is the label column of disease frames
const DefaultTissueColumn = "tissue"

// Disease is a patient workbook whose biomarker columns are matched to
// cohort biomarkers by suffix. The column prefix is the tissue label.
type Disease struct {
	Sheet        *Sheet
	SexColumn    string
	AgeColumn    string
	TissueColumn string
	// Columns maps a biomarker to its disease columns
	Columns map[string][]BiomarkerColumn
}

// LoadDisease reads and resolves a disease workbook
func LoadDisease(path, ageColumn, tissueColumn string, biomarkers []string, logger *slog.Logger) (*Disease, error) {
	sheet, err := ReadSheet(path, "")
	if err != nil {
		return nil, err
	}
	return ResolveDisease(sheet, ageColumn, tissueColumn, biomarkers, logger)
}

// ResolveDisease matches columns ending in _<biomarker>. It fails when no
// biomarker has a matching column. Frames label tissues under
// tissueColumn, DefaultTissueColumn when empty.
func ResolveDisease(sheet *Sheet, ageColumn, tissueColumn string, biomarkers []string, logger *slog.Logger) (*Disease, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tissueColumn == "" {
		tissueColumn = DefaultTissueColumn
	}
	if sheet.ColumnIndex(ageColumn) < 0 {
		return nil, apperrors.NewMissingColumn("disease", ageColumn)
	}
	sexColumn, ok := sheet.FindColumn("sex", "gender")
	if !ok {
		return nil, apperrors.NewMissingColumn("disease", "sex")
	}

	d := &Disease{
		Sheet:        sheet,
		SexColumn:    sexColumn,
		AgeColumn:    ageColumn,
		TissueColumn: tissueColumn,
		Columns:      make(map[string][]BiomarkerColumn),
	}
	matched := 0
	for _, biomarker := range biomarkers {
		suffix := "_" + biomarker
		for _, h := range sheet.Header {
			if !strings.HasSuffix(h, suffix) || h == suffix {
				continue
			}
			d.Columns[biomarker] = append(d.Columns[biomarker], BiomarkerColumn{
				Name:      h,
				Tissue:    strings.TrimSuffix(h, suffix),
				Biomarker: biomarker,
			})
			matched++
		}
		if len(d.Columns[biomarker]) == 0 {
			logger.Warn("no disease columns for biomarker", slog.String("biomarker", biomarker))
		}
	}
	if matched == 0 {
		return nil, apperrors.NewMissingColumn("disease", "*_"+strings.Join(biomarkers, "|"))
	}

	logger.Info("disease data loaded",
		slog.Int("rows", len(sheet.Rows)),
		slog.Int("biomarker_columns", matched))
	return d, nil
}

// Frame stacks the disease columns of biomarker for one sex into a frame
// with the covariate column, the response column and the tissue label.
// It returns nil when the sex has no disease rows.
func (d *Disease) Frame(sex, biomarker, covariate, response string) (*growth.Frame, error) {
	rows := d.Sheet.Filter(func(i int) bool { return d.Sheet.Cell(i, d.SexColumn) == sex })
	if len(rows.Rows) == 0 {
		return nil, nil
	}

	var xs, ys []float64
	var tissues []string
	for _, col := range d.Columns[biomarker] {
		for i := range rows.Rows {
			y := rows.Number(i, col.Name)
			if math.IsNaN(y) {
				continue
			}
			xs = append(xs, rows.Number(i, d.AgeColumn))
			ys = append(ys, y)
			tissues = append(tissues, col.Tissue)
		}
	}
	if len(ys) == 0 {
		return nil, nil
	}
	return growth.NewFrame().
		SetColumn(covariate, xs).
		SetColumn(response, ys).
		SetLabel(d.TissueColumn, tissues), nil
}
