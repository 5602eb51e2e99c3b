package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"growthcurves/internal/config"
	apierrors "growthcurves/internal/errors"
	"growthcurves/internal/growth"
	"growthcurves/internal/infrastructure"
	customMiddleware "growthcurves/internal/middleware"
	handlers "growthcurves/internal/transport/http"
	"growthcurves/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Pipeline      *growth.Pipeline
	Router        *chi.Mux
	Server        *http.Server
}

// NewApplication builds the application from cfg. OpenTelemetry is
// initialized here and shut down by Stop.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	providers, err := infrastructure.InitializeOTel(ctx, cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	pipeline, err := NewPipeline(cfg.Pipeline, providers, logger)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Pipeline:      pipeline,
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

// NewPipeline builds the fitting pipeline with telemetry attached
func NewPipeline(cfg config.PipelineConfig, providers *infrastructure.OTelProviders, logger *slog.Logger) (*growth.Pipeline, error) {
	metrics, err := infrastructure.CreateFitMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create fit metrics: %w", err)
	}
	return growth.NewPipeline(growth.OptionsFromConfig(cfg),
		growth.WithLogger(logger),
		growth.WithTracer(providers.Tracer),
		growth.WithMetrics(metrics),
	), nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	// Order: RequestID, RealIP, OTel, Logger, Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.OTelProviders.Meter, a.Logger)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(errorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		a.setupAPIRoutes(r, errorHandler)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}
	r.NotFound(errorHandler.NotFound)

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	healthHandler := handlers.NewHealthHandler()
	fitHandler := handlers.NewFitHandler(
		a.Pipeline,
		customMiddleware.NewValidator(a.Logger),
		errorHandler,
		a.Logger,
		a.Config.Pipeline.CovariateColumn,
		a.Config.Pipeline.TissueColumn,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Route("/v1", func(r chi.Router) {
			r.Use(customMiddleware.BodyLimit(a.Config.Server.MaxBodyBytes))
			if a.Config.Server.RateLimit.Enabled {
				r.Use(customMiddleware.NewRateLimiter(
					a.Config.Server.RateLimit.RPS,
					a.Config.Server.RateLimit.Burst,
					a.Logger,
					errorHandler,
				).Handler)
			}
			r.Mount("/fit", fitHandler.Routes())
		})
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Start starts serving in the background. cancel is called if the server
// fails after startup.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("mode", a.Config.Pipeline.Mode))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run serves until interrupted or the server fails
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}
	<-ctx.Done()

	return a.Stop(context.Background())
}
