package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"growthcurves/pkg/contracts"
	api "growthcurves/pkg/contracts/api/v1"
)

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	now func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, api.HealthResponse{
		Status:  "ok",
		Version: contracts.Version,
		Time:    h.now().UTC().Format(time.RFC3339),
	})
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}

// Routes returns the health routes
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HealthCheck)
	return r
}
