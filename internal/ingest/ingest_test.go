package ingest

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "growthcurves/internal/errors"
)

// writeWorkbook saves rows (header first) to a temporary xlsx file
func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "cohort.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func cohortRows() [][]interface{} {
	return [][]interface{}{
		{"ID", "Age", "Sex", "Cohort", "WM_FA", "GM_FA", "WM_MD"},
		{"a", 5.5, "F", "control", 0.41, 0.22, 0.9},
		{"b", 7, "M", "control", 0.44, "", 0.8},
		{"c", 9, "F", "patient", 0.47, 0.25, "n/a"},
		{"d", 11, "", "control", 0.5, 0.3, 0.7},
		{"e", "12", "M", "control", "1,000", 0.28, 0.75},
	}
}

func TestReadSheet(t *testing.T) {
	sheet, err := ReadSheet(writeWorkbook(t, cohortRows()), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Age", "Sex", "Cohort", "WM_FA", "GM_FA", "WM_MD"}, sheet.Header)
	require.Len(t, sheet.Rows, 5)
	assert.Equal(t, 4, sheet.ColumnIndex("WM_FA"))
	assert.Equal(t, -1, sheet.ColumnIndex("FA"))

	assert.Equal(t, 5.5, sheet.Number(0, "Age"))
	assert.Equal(t, 1000.0, sheet.Number(4, "WM_FA"))
	assert.True(t, math.IsNaN(sheet.Number(1, "GM_FA")))
	assert.True(t, math.IsNaN(sheet.Number(2, "WM_MD")))

	col, ok := sheet.FindColumn("sex", "gender")
	assert.True(t, ok)
	assert.Equal(t, "Sex", col)

	_, err = sheet.Frame("Age", "Volume")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingColumn))
}

func TestReadSheet_Errors(t *testing.T) {
	_, err := ReadSheet(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

	_, err = ReadSheet(writeWorkbook(t, cohortRows()), "Results")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestResolveCohort(t *testing.T) {
	sheet, err := ReadSheet(writeWorkbook(t, cohortRows()), "")
	require.NoError(t, err)

	c, err := ResolveCohort(sheet, CohortSpec{AgeColumn: "Age", Biomarkers: []string{"FA", "MD"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Sex", c.SexColumn)
	assert.Equal(t, []string{"GM_MD"}, c.Missing)
	assert.Equal(t, []BiomarkerColumn{
		{Name: "GM_FA", Tissue: "GM", Biomarker: "FA"},
		{Name: "WM_FA", Tissue: "WM", Biomarker: "FA"},
		{Name: "WM_MD", Tissue: "WM", Biomarker: "MD"},
	}, c.Columns)

	// the row without a sex label is dropped
	assert.Len(t, c.Sheet.Rows, 4)
	assert.Equal(t, []string{"F", "M"}, c.Sexes())

	reqs, err := c.Requests(nil)
	require.NoError(t, err)
	require.Len(t, reqs, 6)
	assert.Equal(t, "F", reqs[0].Unit.Sex)
	assert.Equal(t, "GM", reqs[0].Unit.Tissue)
	assert.Equal(t, "M", reqs[5].Unit.Sex)
	assert.Equal(t, "WM_MD", reqs[5].Response)

	ages, ok := reqs[0].Observations.Column("Age")
	require.True(t, ok)
	assert.Equal(t, []float64{5.5, 9}, ages)
	assert.Nil(t, reqs[0].Disease)
}

func TestResolveCohort_Groups(t *testing.T) {
	sheet, err := ReadSheet(writeWorkbook(t, cohortRows()), "")
	require.NoError(t, err)

	c, err := ResolveCohort(sheet, CohortSpec{AgeColumn: "Age", Tissues: []string{"WM"}, Biomarkers: []string{"FA"}, Groups: []string{"control"}}, nil)
	require.NoError(t, err)
	assert.Len(t, c.Sheet.Rows, 3)
	assert.Empty(t, c.Missing)
}

func TestResolveCohort_Errors(t *testing.T) {
	sheet, err := ReadSheet(writeWorkbook(t, cohortRows()), "")
	require.NoError(t, err)

	tests := []struct {
		name string
		spec CohortSpec
		want apperrors.ErrorType
	}{
		{"no biomarkers", CohortSpec{AgeColumn: "Age"}, apperrors.ErrTypeMissingInput},
		{"missing age", CohortSpec{AgeColumn: "AGE_YRS", Biomarkers: []string{"FA"}}, apperrors.ErrTypeMissingColumn},
		{"no biomarker column", CohortSpec{AgeColumn: "Age", Biomarkers: []string{"Volume"}}, apperrors.ErrTypeMissingColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveCohort(sheet, tt.spec, nil)
			assert.Equal(t, tt.want, apperrors.TypeOf(err))
		})
	}

	noSex := &Sheet{Name: "s", Header: []string{"Age", "WM_FA"}, Rows: [][]string{{"1", "2"}}}
	_, err = ResolveCohort(noSex, CohortSpec{AgeColumn: "Age", Biomarkers: []string{"FA"}}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingColumn))
}

func TestDisease(t *testing.T) {
	cohortSheet, err := ReadSheet(writeWorkbook(t, cohortRows()), "")
	require.NoError(t, err)
	cohort, err := ResolveCohort(cohortSheet, CohortSpec{AgeColumn: "Age", Tissues: []string{"WM"}, Biomarkers: []string{"FA"}}, nil)
	require.NoError(t, err)

	diseaseSheet, err := ReadSheet(writeWorkbook(t, [][]interface{}{
		{"Age", "Gender", "WM_FA", "Lesion_FA", "WM_MD"},
		{30, "F", 0.3, 0.2, 1.1},
		{40, "F", 0.35, "", 1.2},
		{50, "X", 0.33, 0.21, 1.0},
	}), "")
	require.NoError(t, err)

	d, err := ResolveDisease(diseaseSheet, "Age", "", []string{"FA", "Volume"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Gender", d.SexColumn)
	assert.Equal(t, []BiomarkerColumn{
		{Name: "WM_FA", Tissue: "WM", Biomarker: "FA"},
		{Name: "Lesion_FA", Tissue: "Lesion", Biomarker: "FA"},
	}, d.Columns["FA"])

	frame, err := d.Frame("F", "FA", "Age", "WM_FA")
	require.NoError(t, err)
	require.NotNil(t, frame)
	ys, _ := frame.Column("WM_FA")
	assert.Equal(t, []float64{0.3, 0.35, 0.2}, ys)
	tissues, _ := frame.Label(DefaultTissueColumn)
	assert.Equal(t, []string{"WM", "WM", "Lesion"}, tissues)

	none, err := d.Frame("M", "FA", "Age", "WM_FA")
	require.NoError(t, err)
	assert.Nil(t, none)

	reqs, err := cohort.Requests(d)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.NotNil(t, reqs[0].Disease)
	assert.Nil(t, reqs[1].Disease)

	_, err = ResolveDisease(diseaseSheet, "Age", "", []string{"Volume"}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingColumn))

	labelled, err := ResolveDisease(diseaseSheet, "Age", "label", []string{"FA"}, nil)
	require.NoError(t, err)
	frame, err = labelled.Frame("F", "FA", "Age", "WM_FA")
	require.NoError(t, err)
	tissues, ok := frame.Label("label")
	require.True(t, ok)
	assert.Equal(t, []string{"WM", "WM", "Lesion"}, tissues)
	_, ok = frame.Label(DefaultTissueColumn)
	assert.False(t, ok)
}
