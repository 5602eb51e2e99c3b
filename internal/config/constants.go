package config

import "time"

// Application constants
const (
	AppName    = "growthcurves"
	AppVersion = "1.0.0"
	EnvPrefix  = "GROWTH"

	// Pipeline modes
	ModeFixed  = "fixed"
	ModeSearch = "search"

	// Cleaning strategies
	CleaningPercentile   = "percentile"
	CleaningDoubleZScore = "double_zscore"

	// Fitting defaults
	DefaultFixedStrength = 3000.0
	DefaultMaxCycles     = 200
	DefaultTolerance     = 0.001
	DefaultFitTimeout    = 30 * time.Second

	// Data defaults
	DefaultGatingTissue    = "WM"
	DefaultCovariateColumn = "age"
	DefaultTissueColumn    = "tissue"

	// Rate limiting
	DefaultRateLimit = 5 // fit requests per second
	DefaultBurstSize = 10

	DefaultOutputDir = "output"
)

// DefaultCentileLevels are the reported percentile levels
var DefaultCentileLevels = []float64{3, 15, 50, 85, 97}
