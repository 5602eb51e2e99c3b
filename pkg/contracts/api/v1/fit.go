// Package api contains the HTTP contract of the fitting service.
// Version v1 represents the current stable API version.
package api

// FitRequest asks for a normative model of one unit. Null entries in Age
// or Values mark missing observations.
type FitRequest struct {
	Sex       string     `json:"sex" validate:"required"`
	Tissue    string     `json:"tissue" validate:"required"`
	Biomarker string     `json:"biomarker" validate:"required"`
	Covariate string     `json:"covariate,omitempty"`
	Age       []*float64 `json:"age" validate:"required,min=1"`
	Values    []*float64 `json:"values" validate:"required,eqfield=Age"`
	Mode      string     `json:"mode,omitempty" validate:"omitempty,oneof=fixed search"`
	Strength  float64    `json:"strength,omitempty" validate:"gte=0"`
	Disease   *Disease   `json:"disease,omitempty"`
}

// Disease carries patient observations to score against the fitted model
type Disease struct {
	Age    []*float64 `json:"age" validate:"required,min=1"`
	Values []*float64 `json:"values" validate:"required,eqfield=Age"`
	Tissue []string   `json:"tissue" validate:"required,eqfield=Age"`
}

// Unit identifies the fitted stratum
type Unit struct {
	Sex       string `json:"sex"`
	Tissue    string `json:"tissue"`
	Biomarker string `json:"biomarker"`
}

// Smoothing describes the smoother chosen by the search
type Smoothing struct {
	Method      string  `json:"method"`
	Description string  `json:"description"`
	Strength    float64 `json:"strength"`
	DF          int     `json:"df"`
}

// CentilePoint holds the centile values at one covariate value, aligned
// with FitResponse.Levels
type CentilePoint struct {
	X      float64   `json:"x"`
	Values []float64 `json:"values"`
}

// DiseasePoint is one scored disease observation
type DiseasePoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Tissue     string  `json:"tissue"`
	Percentile float64 `json:"percentile"`
	Z          float64 `json:"z"`
}

// FitResponse is the selected model of a unit and its centile curves
type FitResponse struct {
	Unit              Unit               `json:"unit"`
	Mode              string             `json:"mode"`
	Family            string             `json:"family"`
	FamilyDescription string             `json:"family_description"`
	Smoothing         *Smoothing         `json:"smoothing,omitempty"`
	AIC               float64            `json:"aic"`
	GlobalDeviance    float64            `json:"global_deviance"`
	EDF               float64            `json:"edf"`
	Rows              int                `json:"rows"`
	LogTransformed    bool               `json:"log_transformed"`
	Scale             string             `json:"scale"`
	Levels            []float64          `json:"levels"`
	Centiles          []CentilePoint     `json:"centiles"`
	Coefficients      map[string]float64 `json:"coefficients"`
	Disease           []DiseasePoint     `json:"disease,omitempty"`
	Summary           string             `json:"summary,omitempty"`
	Candidates        int                `json:"candidates"`
	Converged         int                `json:"converged"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}
