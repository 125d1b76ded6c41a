// Package operations runs the data-cleaning pipelines as steps of a single
// batch run.
//
// Core Components:
//
// Manager: executes the registered steps sequentially or in parallel
// (golang.org/x/sync/errgroup), applies per step timeouts and records each
// outcome in the run manifest, the metrics sink and the progress reporter.
//
// Step: a unit of work. PipelineStep is the only production implementation;
// it validates the raw input, loads it, runs one pipeline and writes the
// processed table and any persisted artifacts.
//
// Registry: keeps steps in registration order and resolves a selection of
// pipeline ids.
//
// RunManifest: the JSON record of a run (run id, per pipeline rows, output
// files, columns and diagnostics) saved next to the processed outputs.
//
// Example usage:
//
//	steps, _ := operations.NewPipelineSteps(cfg, paths, popts, stageOpts)
//	registry := operations.NewRegistry()
//	for _, s := range steps {
//		registry.Register(s)
//	}
//	manager := operations.NewManager(registry, operations.ConfigFromApp(cfg),
//		operations.WithManifest(manifest))
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
package operations
