package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the output locations of a run
type Paths struct {
	OutputDir   string
	CentilesDir string
	ResultsFile string
	ReportFile  string
}

// NewPaths lays out the output tree under outputDir
func NewPaths(outputDir string) *Paths {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &Paths{
		OutputDir:   outputDir,
		CentilesDir: filepath.Join(outputDir, "centiles"),
		ResultsFile: filepath.Join(outputDir, "results.json"),
		ReportFile:  filepath.Join(outputDir, "report.txt"),
	}
}

// EnsureDirectories creates all output directories
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.CentilesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CentilePath returns the centile CSV path for one unit of work
func (p *Paths) CentilePath(sex, tissue, biomarker string) string {
	name := fmt.Sprintf("%s_%s_%s_centiles.csv", sanitize(sex), sanitize(tissue), sanitize(biomarker))
	return filepath.Join(p.CentilesDir, name)
}

// DiseasePath returns the scored disease points CSV path for one unit
func (p *Paths) DiseasePath(sex, tissue, biomarker string) string {
	name := fmt.Sprintf("%s_%s_%s_disease.csv", sanitize(sex), sanitize(tissue), sanitize(biomarker))
	return filepath.Join(p.CentilesDir, name)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "all"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
