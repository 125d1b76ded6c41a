// Package config provides centralized configuration management for covidprep.
// It loads settings from several sources, validates them, and exposes the
// immutable reference tables (country allow-list, intervention weights and
// categories) that the pipelines receive at construction time.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A .env file in the working directory
//	3. A YAML configuration file
//	4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COVIDPREP_<SECTION>_<FIELD>:
//
//	COVIDPREP_LOGGING_LEVEL=debug
//	COVIDPREP_PATHS_INPUT_DIR=/data/raw
//	COVIDPREP_RUN_EXECUTION_MODE=parallel
//	COVIDPREP_PIPELINES_TESTING_WEEK_MODE=us
//	COVIDPREP_PIPELINES_VACCINATION_WINDOW_SIZE=14
//
// # Path Management
//
// Paths resolves the configured directories against the base directory:
//
//	paths, err := cfg.GetPaths()
//	input := paths.GetInputPath(cfg.Pipelines.Cases.InputFile)
//	output := paths.GetOutputPath(cfg.Pipelines.Cases.OutputFile)
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// Default returns a fully populated configuration that needs no environment
// variables or files, and DefaultReferenceData returns fresh copies of the
// built-in lookup tables.
package config
