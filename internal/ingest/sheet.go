package ingest

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/growth"
)

// Sheet is one worksheet read as a header row plus string cells
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadSheet opens a workbook and reads sheet; an empty name reads the
// first sheet.
func ReadSheet(path, sheet string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()
	return readSheet(f, sheet)
}

// ReadSheetFrom reads a workbook from r
func ReadSheetFrom(r io.Reader, sheet string) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read workbook", err)
	}
	defer f.Close()
	return readSheet(f, sheet)
}

func readSheet(f *excelize.File, sheet string) (*Sheet, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewMissingInput("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewMissingInput(fmt.Sprintf("sheet %q is empty", sheet))
	}

	s := &Sheet{Name: sheet}
	for _, h := range rows[0] {
		s.Header = append(s.Header, strings.TrimSpace(h))
	}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// ColumnIndex returns the position of the header name, or -1
func (s *Sheet) ColumnIndex(name string) int {
	for i, h := range s.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// FindColumn returns the first header whose lower-cased text contains
// any of the fragments.
func (s *Sheet) FindColumn(fragments ...string) (string, bool) {
	for _, h := range s.Header {
		lower := strings.ToLower(h)
		for _, frag := range fragments {
			if strings.Contains(lower, frag) {
				return h, true
			}
		}
	}
	return "", false
}

// Cell returns the trimmed cell of row i in column name
func (s *Sheet) Cell(i int, name string) string {
	j := s.ColumnIndex(name)
	if j < 0 || j >= len(s.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[i][j])
}

// Number parses the cell of row i in column name. Empty and
// non-numeric cells are NaN.
func (s *Sheet) Number(i int, name string) float64 {
	return parseNumber(s.Cell(i, name))
}

// Filter returns a sheet view with the rows keep accepts
func (s *Sheet) Filter(keep func(i int) bool) *Sheet {
	out := &Sheet{Name: s.Name, Header: s.Header}
	for i, row := range s.Rows {
		if keep(i) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Frame converts the named numeric columns of the sheet to a frame
func (s *Sheet) Frame(columns ...string) (*growth.Frame, error) {
	frame := growth.NewFrame()
	for _, name := range columns {
		if s.ColumnIndex(name) < 0 {
			return nil, apperrors.NewMissingColumn(s.Name, name)
		}
		values := make([]float64, len(s.Rows))
		for i := range s.Rows {
			values[i] = s.Number(i, name)
		}
		frame.SetColumn(name, values)
	}
	return frame, nil
}

func parseNumber(cell string) float64 {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
