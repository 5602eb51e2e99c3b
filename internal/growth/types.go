package growth

import (
	"fmt"
	"math"

	"growthcurves/internal/gamlss"
)

// Mode selects how the candidate grid is built
type Mode string

const (
	// ModeFixed tries four Box-Cox and normal families with one penalized
	// spline configuration.
	ModeFixed Mode = "fixed"
	// ModeSearch searches smoothing method, strength and degrees of
	// freedom across seven families.
	ModeSearch Mode = "search"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeFixed || m == ModeSearch
}

// CleaningStrategy selects the upper tail trim applied after the
// transform decision.
type CleaningStrategy string

const (
	// CleanPercentile drops responses above the 99th percentile
	CleanPercentile CleaningStrategy = "percentile"
	// CleanDoubleZScore repeats the |z| > 3 trim on the transformed table
	CleanDoubleZScore CleaningStrategy = "double_zscore"
)

// Valid reports whether s is a known strategy
func (s CleaningStrategy) Valid() bool {
	return s == CleanPercentile || s == CleanDoubleZScore
}

// Unit identifies one (sex, tissue, biomarker) unit of work
type Unit struct {
	Sex       string `json:"sex"`
	Tissue    string `json:"tissue"`
	Biomarker string `json:"biomarker"`
}

// String renders the unit for diagnostics
func (u Unit) String() string {
	return fmt.Sprintf("biomarker %s, sex %s, tissue %s", u.Biomarker, u.Sex, u.Tissue)
}

// Frame is a rectangular table of named numeric and label columns as
// handed over by ingestion. Missing numeric values are NaN.
type Frame struct {
	Columns map[string][]float64
	Labels  map[string][]string
}

// NewFrame creates an empty frame
func NewFrame() *Frame {
	return &Frame{
		Columns: make(map[string][]float64),
		Labels:  make(map[string][]string),
	}
}

// SetColumn stores a numeric column and returns the frame
func (f *Frame) SetColumn(name string, values []float64) *Frame {
	if f.Columns == nil {
		f.Columns = make(map[string][]float64)
	}
	f.Columns[name] = values
	return f
}

// SetLabel stores a label column and returns the frame
func (f *Frame) SetLabel(name string, values []string) *Frame {
	if f.Labels == nil {
		f.Labels = make(map[string][]string)
	}
	f.Labels[name] = values
	return f
}

// Column returns the numeric column name
func (f *Frame) Column(name string) ([]float64, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.Columns[name]
	return v, ok
}

// Label returns the label column name
func (f *Frame) Label(name string) ([]string, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.Labels[name]
	return v, ok
}

// Len returns the row count, taken as the longest column
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	n := 0
	for _, c := range f.Columns {
		n = max(n, len(c))
	}
	for _, c := range f.Labels {
		n = max(n, len(c))
	}
	return n
}

// Table is a cleaned observation table. It is never modified after the
// cleaner returns it.
type Table struct {
	X              []float64
	Y              []float64
	XName          string
	YName          string
	LogTransformed bool
}

// Len returns the number of observations
func (t *Table) Len() int {
	return len(t.Y)
}

// Data exposes the table as fitter input
func (t *Table) Data() gamlss.Data {
	return gamlss.Data{X: t.X, Y: t.Y, XName: t.XName}
}

// Transform maps a raw response onto the scale the table was fitted on.
// ok is false when the value cannot be placed on that scale.
func (t *Table) Transform(y float64) (v float64, ok bool) {
	if !t.LogTransformed {
		return y, isFinite(y)
	}
	if !(y > 0) || math.IsInf(y, 1) {
		return 0, false
	}
	return math.Log(y), true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
