package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/growth"
)

// UnitRecord is the serialized form of one batch outcome
type UnitRecord struct {
	Unit       growth.Unit       `json:"unit"`
	Status     growth.UnitStatus `json:"status"`
	Stage      string            `json:"stage,omitempty"`
	ErrorType  string            `json:"error_type,omitempty"`
	Diagnostic string            `json:"diagnostic,omitempty"`
	Result     *growth.Result    `json:"result,omitempty"`
}

// NewUnitRecord converts a batch outcome into its serialized form
func NewUnitRecord(o growth.UnitOutcome) UnitRecord {
	rec := UnitRecord{
		Unit:   o.Unit,
		Status: o.Status,
		Stage:  o.Stage,
		Result: o.Result,
	}
	if o.Err != nil {
		rec.ErrorType = string(apperrors.TypeOf(o.Err))
		rec.Diagnostic = o.Diagnostic()
	}
	return rec
}

// ResultsDocument is the top-level results file
type ResultsDocument struct {
	Summary growth.BatchSummary `json:"summary"`
	Units   []UnitRecord        `json:"units"`
}

// NewResultsDocument builds the results document for a batch
func NewResultsDocument(outcomes []growth.UnitOutcome) ResultsDocument {
	doc := ResultsDocument{
		Summary: growth.Summarize(outcomes),
		Units:   make([]UnitRecord, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		doc.Units = append(doc.Units, NewUnitRecord(o))
	}
	return doc
}

// WriteResults writes the results document of a batch as indented JSON
func WriteResults(path string, outcomes []growth.UnitOutcome) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(NewResultsDocument(outcomes), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
