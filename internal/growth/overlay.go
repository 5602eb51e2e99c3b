package growth

import (
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/gamlss"
)

// DefaultGatingTissue is the disease tissue label that enables overlay
const DefaultGatingTissue = "WM"

// tail bound for z equivalents of percentiles at 0 or 100
const overlayZLimit = 8.0

// DiseasePoint is one disease observation placed on the normative model
type DiseasePoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Value      float64 `json:"value"`
	Tissue     string  `json:"tissue"`
	Percentile float64 `json:"percentile"`
	Z          float64 `json:"z"`
}

// Overlay holds the disease points scored against the selected model
type Overlay struct {
	Tissue string         `json:"tissue"`
	Points []DiseasePoint `json:"points"`
}

// OverlaySpec names the disease table columns and the gating category
type OverlaySpec struct {
	Covariate    string
	Response     string
	TissueColumn string
	Gating       string
}

// ScoreDisease places disease rows labelled with the gating tissue on the
// fitted model. Y is the raw response, Value the response on the fitted
// scale, Percentile the model CDF at Value in percent. Covariate values
// outside the fitted range use the nearest end of the range. It returns a
// nil overlay, and no error, when there is no disease frame or no row
// passes gating.
func ScoreDisease(disease *Frame, spec OverlaySpec, table *Table, res *gamlss.Result) (*Overlay, error) {
	if disease == nil || disease.Len() == 0 {
		return nil, nil
	}
	if spec.Gating == "" {
		spec.Gating = DefaultGatingTissue
	}

	tissues, ok := disease.Label(spec.TissueColumn)
	if !ok {
		return nil, apperrors.NewMissingColumn("disease", spec.TissueColumn)
	}
	xs, ok := disease.Column(spec.Covariate)
	if !ok {
		return nil, apperrors.NewMissingColumn("disease", spec.Covariate)
	}
	ys, ok := disease.Column(spec.Response)
	if !ok {
		return nil, apperrors.NewMissingColumn("disease", spec.Response)
	}

	var points []DiseasePoint
	for i, tissue := range tissues {
		if tissue != spec.Gating || i >= len(xs) || i >= len(ys) {
			continue
		}
		x, y := xs[i], ys[i]
		if !isFinite(x) {
			continue
		}
		v, ok := table.Transform(y)
		if !ok {
			continue
		}
		th, err := res.Predict(x)
		if err != nil {
			return nil, err
		}
		p := res.Family.CDF(v, th)
		if !isFinite(p) {
			continue
		}
		z := distuv.UnitNormal.Quantile(p)
		z = max(-overlayZLimit, min(overlayZLimit, z))
		points = append(points, DiseasePoint{
			X:          x,
			Y:          y,
			Value:      v,
			Tissue:     tissue,
			Percentile: 100 * p,
			Z:          z,
		})
	}
	if len(points) == 0 {
		return nil, nil
	}
	return &Overlay{Tissue: spec.Gating, Points: points}, nil
}
