package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "growthcurves/internal/errors"
	"growthcurves/internal/growth"
	"growthcurves/internal/middleware"
	api "growthcurves/pkg/contracts/api/v1"
)

// FitRunner runs the pipeline for one unit
type FitRunner interface {
	Run(ctx context.Context, req growth.Request) (*growth.Result, error)
}

// FitHandler handles model fitting requests
type FitHandler struct {
	runner           FitRunner
	validator        *middleware.Validator
	errorHandler     *apierrors.ErrorHandler
	logger           *slog.Logger
	defaultCovariate string
	tissueColumn     string
}

// NewFitHandler creates a fit handler. defaultCovariate names the
// covariate when a request leaves it empty; tissueColumn is the label
// column the pipeline gates disease rows on.
func NewFitHandler(runner FitRunner, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger, defaultCovariate, tissueColumn string) *FitHandler {
	return &FitHandler{
		runner:           runner,
		validator:        validator,
		errorHandler:     errorHandler,
		logger:           logger.With(slog.String("handler", "fit")),
		defaultCovariate: defaultCovariate,
		tissueColumn:     tissueColumn,
	}
}

// Fit handles POST /api/v1/fit
func (h *FitHandler) Fit(w http.ResponseWriter, r *http.Request) {
	var req api.FitRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.runner.Run(r.Context(), h.toRequest(req))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "fit served",
		slog.String("unit", res.Unit.String()),
		slog.String("family", res.Family),
		slog.String("request_id", middleware.GetRequestID(r.Context())))
	render.JSON(w, r, toResponse(res))
}

func (h *FitHandler) toRequest(req api.FitRequest) growth.Request {
	covariate := req.Covariate
	if covariate == "" {
		covariate = h.defaultCovariate
	}
	out := growth.Request{
		Unit:      growth.Unit{Sex: req.Sex, Tissue: req.Tissue, Biomarker: req.Biomarker},
		Covariate: covariate,
		Response:  req.Biomarker,
		Mode:      growth.Mode(req.Mode),
		Strength:  req.Strength,
		Observations: growth.NewFrame().
			SetColumn(covariate, values(req.Age)).
			SetColumn(req.Biomarker, values(req.Values)),
	}
	if req.Disease != nil {
		out.Disease = growth.NewFrame().
			SetColumn(covariate, values(req.Disease.Age)).
			SetColumn(req.Biomarker, values(req.Disease.Values)).
			SetLabel(h.tissueColumn, req.Disease.Tissue)
	}
	return out
}

// values maps null entries to NaN so cleaning drops them
func values(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

func toResponse(res *growth.Result) api.FitResponse {
	resp := api.FitResponse{
		Unit:              api.Unit{Sex: res.Unit.Sex, Tissue: res.Unit.Tissue, Biomarker: res.Unit.Biomarker},
		Mode:              string(res.Mode),
		Family:            res.Family,
		FamilyDescription: res.FamilyDescription,
		AIC:               res.AIC,
		GlobalDeviance:    res.GlobalDeviance,
		EDF:               res.EDF,
		Rows:              res.Rows,
		LogTransformed:    res.LogTransformed,
		Coefficients:      res.Coefficients,
		Summary:           res.Summary,
		Candidates:        res.Candidates,
		Converged:         res.ConvergedCandidates,
	}
	if res.Smoothing != nil {
		resp.Smoothing = &api.Smoothing{
			Method:      string(res.Smoothing.Method),
			Description: res.Smoothing.Description,
			Strength:    res.Smoothing.Strength,
			DF:          res.Smoothing.DF,
		}
	}
	if res.Centiles != nil {
		resp.Scale = string(res.Centiles.Scale)
		resp.Levels = res.Centiles.Levels
		for _, pt := range res.Centiles.Wide() {
			resp.Centiles = append(resp.Centiles, api.CentilePoint{X: pt.X, Values: pt.Values})
		}
	}
	if res.Overlay != nil {
		for _, p := range res.Overlay.Points {
			resp.Disease = append(resp.Disease, api.DiseasePoint{
				X:          p.X,
				Y:          p.Y,
				Tissue:     p.Tissue,
				Percentile: p.Percentile,
				Z:          p.Z,
			})
		}
	}
	return resp
}

// Routes returns the fit routes
func (h *FitHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator("application/json")).Post("/", h.Fit)
	return r
}
