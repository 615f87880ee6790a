// Package output renders CLI command results as tables or structured text.
package output

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable writes data as a formatted table to the writer.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.Headers())

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, row := range data.Rows() {
		table.Append(row)
	}

	table.Render()
	return nil
}

// StatsTable prints the `neko stats` summary with counts as plain integers
// and byte totals humanized (e.g. "4.2 MB") alongside the exact byte count.
func StatsTable(w io.Writer, activeFiles, trashedFiles, pendingFiles, totalBytes, indexBytes int64) error {
	return SimpleTable(w, [][2]string{
		{"Active files", strconv.FormatInt(activeFiles, 10)},
		{"Trashed files", strconv.FormatInt(trashedFiles, 10)},
		{"Pending files", strconv.FormatInt(pendingFiles, 10)},
		{"Total size", humanizeBytes(totalBytes)},
		{"Index size", humanizeBytes(indexBytes)},
	})
}

func humanizeBytes(n int64) string {
	return humanize.Bytes(uint64(n)) + " (" + strconv.FormatInt(n, 10) + " bytes)"
}

// SimpleTable prints a key-value table with no header row, for single-object
// summaries like `neko stats`.
func SimpleTable(w io.Writer, pairs [][2]string) error {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, pair := range pairs {
		table.Append([]string{pair[0], pair[1]})
	}

	table.Render()
	return nil
}
