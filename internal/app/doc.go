// Package app wires one invocation of covidprep.
//
// New resolves the configured directories, builds the logger (JSON, or tint
// on a terminal), installs the tracer provider, checks the output directory
// and creates one operations.PipelineStep per pipeline. Run executes a
// selection of those steps through an operations.Manager, prints a progress
// line per finished pipeline and persists the run manifest and the metrics
// textfile. Close flushes spans and releases the log file.
//
// The package never calls os.Exit; the command decides the exit status from
// the error Run returns.
package app
