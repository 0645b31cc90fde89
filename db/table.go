package db

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// RenderTable writes headers and rows as a bordered text table.
func RenderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	table.Header(header...)

	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
