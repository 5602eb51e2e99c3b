// Package config provides configuration management for growthcurves.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later sources
// overriding earlier ones:
//
//  1. Default values (Default)
//  2. A YAML file (growthcurves.yaml, configs/growthcurves.yaml or an explicit path)
//  3. Environment variables with the GROWTH_ prefix
//
// # Environment Variables
//
// Nested structs are addressed with underscores:
//
//	GROWTH_PIPELINE_MODE=search
//	GROWTH_PIPELINE_WORKERS=8
//	GROWTH_PIPELINE_CLEANING_STRATEGY=double_zscore
//	GROWTH_LOGGING_LEVEL=debug
//	GROWTH_SERVER_PORT=9000
//
// # Validation
//
// Struct tags are checked with go-playground/validator after loading, so a
// bad mode, an empty centile level list or a non-positive timeout is
// reported before any work starts.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
