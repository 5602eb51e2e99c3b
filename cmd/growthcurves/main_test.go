package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"growthcurves/internal/config"
	"growthcurves/internal/shared/testutil"
)

func writeCohort(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{{"Age", "Sex", "WM_FA"}}
	c := testutil.NormalCohort(80, 3)
	for i := range c.Age {
		rows = append(rows, []interface{}{c.Age[i], "F", c.Value[i]})
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "cohort.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GROWTH_TELEMETRY_ENABLE_METRICS", "false")
	t.Setenv("GROWTH_LOGGING_LEVEL", "error")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFitCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out")

	out, err := runCommand(t, "fit",
		"--input", writeCohort(t),
		"--biomarkers", "FA",
		"--tissues", "WM",
		"--age-column", "Age",
		"--workers", "2",
		"--output", output)
	require.NoError(t, err)

	assert.Contains(t, out, "1 fitted, 0 failed, 0 skipped")
	paths := config.NewPaths(output)
	assert.FileExists(t, paths.CentilePath("F", "WM", "FA"))
	assert.FileExists(t, paths.ResultsFile)
	assert.FileExists(t, paths.ReportFile)
}

func TestFitCommand_InvalidOptions(t *testing.T) {
	_, err := runCommand(t, "fit",
		"--input", writeCohort(t),
		"--biomarkers", "FA",
		"--mode", "exhaustive",
		"--output", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid options")
}

func TestFitCommand_RequiredFlags(t *testing.T) {
	_, err := runCommand(t, "fit", "--input", "cohort.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "biomarkers")
}
