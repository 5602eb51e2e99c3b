package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"growthcurves/internal/app"
	"growthcurves/internal/config"
	"growthcurves/internal/growth"
	"growthcurves/internal/infrastructure"
	"growthcurves/internal/ingest"
	"growthcurves/pkg/contracts"
)

type fitFlags struct {
	input      string
	disease    string
	ageColumn  string
	tissues    []string
	biomarkers []string
	groups     []string
	output     string
	mode       string
	strength   float64
	cleaning   string
	workers    int
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "growthcurves",
		Short:         "Fit normative growth curves to biomarker cohorts",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")

	root.AddCommand(newFitCommand(&configFile))
	root.AddCommand(newServeCommand(&configFile))
	return root
}

func newFitCommand(configFile *string) *cobra.Command {
	var f fitFlags

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit every sex, tissue and biomarker unit of a cohort workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			applyFitFlags(cmd, cfg, f)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer infrastructure.CloseLogFile()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			providers, err := infrastructure.InitializeOTel(ctx, cfg.Telemetry, logger)
			if err != nil {
				return err
			}
			defer providers.Shutdown(context.Background())

			pipeline, err := app.NewPipeline(cfg.Pipeline, providers, logger)
			if err != nil {
				return err
			}

			ageColumn := f.ageColumn
			if ageColumn == "" {
				ageColumn = cfg.Pipeline.CovariateColumn
			}
			report, err := app.RunFitJob(ctx, pipeline, app.FitJob{
				InputFile:   f.input,
				DiseaseFile: f.disease,
				Cohort: ingest.CohortSpec{
					AgeColumn:  ageColumn,
					Tissues:    f.tissues,
					Biomarkers: f.biomarkers,
					Groups:     f.groups,
				},
				OutputDir: cfg.Paths.OutputDir,
			}, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d fitted, %d failed, %d skipped in %s\n",
				report.Summary.Fitted, report.Summary.Failed, report.Summary.Skipped, report.Duration.Round(time.Millisecond))
			for _, o := range report.Outcomes {
				if o.Status != growth.UnitFitted {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", o.Diagnostic())
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.input, "input", "i", "", "cohort workbook (.xlsx)")
	flags.StringVar(&f.disease, "disease", "", "disease workbook (.xlsx) scored against the fitted curves")
	flags.StringVar(&f.ageColumn, "age-column", "", "covariate column name")
	flags.StringSliceVar(&f.tissues, "tissues", ingest.DefaultTissues, "tissue column prefixes")
	flags.StringSliceVarP(&f.biomarkers, "biomarkers", "b", nil, "biomarker column suffixes")
	flags.StringSliceVar(&f.groups, "groups", nil, "keep only rows whose Cohort column is listed")
	flags.StringVarP(&f.output, "output", "o", "", "output directory")
	flags.StringVar(&f.mode, "mode", "", "fixed or search")
	flags.Float64Var(&f.strength, "strength", 0, "smoothing strength of the fixed grid")
	flags.StringVar(&f.cleaning, "cleaning", "", "percentile or double_zscore")
	flags.IntVar(&f.workers, "workers", 0, "concurrent candidate fits")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("biomarkers")
	return cmd
}

// applyFitFlags overlays explicitly set flags onto cfg
func applyFitFlags(cmd *cobra.Command, cfg *config.Config, f fitFlags) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Paths.OutputDir = f.output
	}
	if flags.Changed("mode") {
		cfg.Pipeline.Mode = f.mode
	}
	if flags.Changed("strength") {
		cfg.Pipeline.FixedStrength = f.strength
	}
	if flags.Changed("cleaning") {
		cfg.Pipeline.CleaningStrategy = f.cleaning
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = f.workers
	}
	if flags.Changed("age-column") {
		cfg.Pipeline.CovariateColumn = f.ageColumn
	}
}

func newServeCommand(configFile *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fitting API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer infrastructure.CloseLogFile()

			application, err := app.NewApplication(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("failed to start", slog.String("error", err.Error()))
				return err
			}
			return application.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port")
	return cmd
}
