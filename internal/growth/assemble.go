package growth

import (
	"fmt"
	"sort"
	"strings"

	"growthcurves/internal/gamlss"
)

// CurveStatus distinguishes a parameter the family lacks from a fitted one
type CurveStatus string

const (
	CurveFitted        CurveStatus = "fitted"
	CurveNotApplicable CurveStatus = "not_applicable"
)

// ParameterCurve holds one fitted parameter per observation
type ParameterCurve struct {
	Status CurveStatus `json:"status"`
	Values []float64   `json:"values,omitempty"`
}

// Smoothing describes the chosen smoother in search mode
type Smoothing struct {
	Method      gamlss.Method `json:"method"`
	Description string        `json:"description"`
	Strength    float64       `json:"strength"`
	DF          int           `json:"df"`
}

// Result is the externally visible outcome of one unit
type Result struct {
	Unit                Unit                      `json:"unit"`
	Mode                Mode                      `json:"mode"`
	Family              string                    `json:"family"`
	FamilyDescription   string                    `json:"family_description"`
	Smoothing           *Smoothing                `json:"smoothing,omitempty"`
	AIC                 float64                   `json:"aic"`
	GlobalDeviance      float64                   `json:"global_deviance"`
	EDF                 float64                   `json:"edf"`
	Rows                int                       `json:"rows"`
	LogTransformed      bool                      `json:"log_transformed"`
	Covariate           string                    `json:"covariate"`
	Response            string                    `json:"response"`
	X                   []float64                 `json:"x"`
	Curves              map[string]ParameterCurve `json:"curves"`
	Coefficients        map[string]float64        `json:"coefficients"`
	Centiles            *CentileTable             `json:"centiles"`
	Overlay             *Overlay                  `json:"overlay,omitempty"`
	Summary             string                    `json:"summary,omitempty"`
	Candidates          int                       `json:"candidates"`
	ConvergedCandidates int                       `json:"converged_candidates"`
}

// Assemble packages the selected model and its derived tables
func Assemble(mode Mode, unit Unit, table *Table, sel *Selection, centiles *CentileTable, overlay *Overlay) *Result {
	best := sel.Best
	res := &Result{
		Unit:                unit,
		Mode:                mode,
		Family:              best.Family.Name,
		FamilyDescription:   best.Family.Description,
		AIC:                 best.AIC,
		GlobalDeviance:      best.GlobalDeviance,
		EDF:                 best.TotalEDF(),
		Rows:                table.Len(),
		LogTransformed:      table.LogTransformed,
		Covariate:           table.XName,
		Response:            table.YName,
		X:                   table.X,
		Curves:              make(map[string]ParameterCurve, gamlss.NumParams),
		Coefficients:        best.Coefficients,
		Centiles:            centiles,
		Overlay:             overlay,
		Candidates:          sel.Attempted,
		ConvergedCandidates: sel.Converged,
	}

	for _, p := range gamlss.AllParams {
		if best.Family.HasParam(p) {
			res.Curves[p.String()] = ParameterCurve{Status: CurveFitted, Values: best.Fitted[p]}
		} else {
			res.Curves[p.String()] = ParameterCurve{Status: CurveNotApplicable}
		}
	}

	if mode == ModeSearch {
		res.Smoothing = &Smoothing{
			Method:      best.Spec.Method,
			Description: best.Spec.Method.Description(),
			Strength:    best.Spec.Strength,
			DF:          best.Spec.DF,
		}
		res.Summary = summarize(best, table)
	}
	return res
}

// summarize renders the selected model as plain text
func summarize(best *gamlss.Result, table *Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Family: %s (%s)\n", best.Family.Name, best.Family.Description)
	fmt.Fprintf(&b, "Smoothing: %s (%s), strength %g, df %d\n",
		best.Spec.Method, best.Spec.Method.Description(), best.Spec.Strength, best.Spec.DF)
	fmt.Fprintf(&b, "Response: %s", table.YName)
	if table.LogTransformed {
		b.WriteString(" (log)")
	}
	fmt.Fprintf(&b, ", covariate: %s, observations: %d\n", table.XName, table.Len())
	fmt.Fprintf(&b, "Global deviance: %.4f\n", best.GlobalDeviance)
	fmt.Fprintf(&b, "AIC: %.4f\n", best.AIC)
	fmt.Fprintf(&b, "Effective df: %.3f\n", best.TotalEDF())
	fmt.Fprintf(&b, "RS cycles: %d\n", best.Cycles)

	names := make([]string, 0, len(best.Coefficients))
	for name := range best.Coefficients {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("Coefficients:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-24s %12.6g\n", name, best.Coefficients[name])
	}
	return b.String()
}
