package exporter

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"covidprep/internal/dataprocessing"
)

// Preview prints the first n rows of t as a bordered console table,
// followed by the total row count
func Preview(out io.Writer, title string, t *dataprocessing.Table, n int) {
	head := t.Head(n)

	if title != "" {
		fmt.Fprintln(out, title)
	}

	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(head.Columns())
	table.AppendBulk(head.Records())
	table.Render()

	fmt.Fprintf(out, "[%d rows x %d columns]\n", t.Len(), len(t.Columns()))
}
