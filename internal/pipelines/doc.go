// Package pipelines holds the four ECDC dataset cleaners.
//
// Each pipeline checks its required input columns, then runs an ordered
// chain of table transforms on a private copy of the input:
//
//   - cases: EU/EEA filter, gap repair, ISO week dates, running totals,
//     pandemic wave, cases per million and period labels
//   - interventions: EU/EEA filter, measure weights rescaled to 0-100,
//     durations, categories and a per day aggregate
//   - testing: gap repair, week renumbering, testing effectiveness
//   - vaccination: running coverage, weekly change, smoothed rate and milestones
//
// Non-fatal problems (unreadable cells, zero denominators, filled gaps,
// running totals that disagree with the published ones) are counted in the
// Result diagnostics instead of failing the run.
package pipelines
