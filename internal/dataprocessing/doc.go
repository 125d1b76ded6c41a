// Package dataprocessing provides the ordered in-memory table that every
// covidprep pipeline transforms, plus the column operations the pipelines
// are composed from.
//
// # Architecture
//
// The package is organized into four main components:
//
// 1. Table and Value: typed cells in ordered rows, with filter, stable sort,
// group, derive and drop
// 2. Loader: reads CSV and XLSX inputs into a Table
// 3. Column operations: forward fill, interpolation, running sums,
// differences, rolling means, ratios and date parsing
// 4. Chain: applies named Transform steps in sequence with tracing and logging
//
// # Usage
//
//	t, err := dataprocessing.LoadFile(ctx, "Data/cases_deaths.csv", dataprocessing.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	chain := dataprocessing.NewChain("cases",
//	    dataprocessing.InPlace("ffill", func(ctx context.Context, t *dataprocessing.Table) error {
//	        return dataprocessing.ForwardFill(ctx, t, "weekly_count")
//	    }),
//	)
//	out, err := chain.Run(ctx, t)
//
// # Ordering
//
// Only SortBy reorders rows. Grouped operations (CumulativeSum, Difference,
// RollingMean) walk each group in table order and write results back to the
// original row positions, so callers sort first when order matters.
//
// # Error Handling
//
// A missing column is reported as a MISSING_COLUMN PipelineError. Cells that
// cannot be read, and ratios with a zero denominator, become null and are
// counted in the Diagnostics attached to the context.
package dataprocessing
