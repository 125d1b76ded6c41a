// Package exporter writes processed tables and shows them on the console.
//
// CSVWriter writes comma separated files with a header row, optionally
// prefixed with a UTF-8 BOM for Excel. Every write goes to a temporary file
// next to the target and is renamed into place only once complete.
//
// Preview renders the head of a table with tablewriter.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	path, err := writer.WriteTable("processed_cases_deaths.csv", table, false)
//
//	exporter.Preview(os.Stdout, "cases", table, 5)
package exporter
