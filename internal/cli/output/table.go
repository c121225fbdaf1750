package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by results that have a tabular form.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable writes data as a borderless, left-aligned table.
func PrintTable(w io.Writer, data TableRenderer) error {
	t := plainTable(w, " ")
	t.SetHeader(data.Headers())
	t.SetAutoFormatHeaders(true)
	t.AppendBulk(data.Rows())
	t.Render()
	return nil
}

// SimpleTable prints "key: value" lines, one pair per row.
func SimpleTable(w io.Writer, pairs [][2]string) error {
	t := plainTable(w, ":")
	for _, p := range pairs {
		t.Append(p[:])
	}
	t.Render()
	return nil
}

func plainTable(w io.Writer, sep string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetHeaderLine(false)
	t.SetCenterSeparator("")
	t.SetRowSeparator("")
	t.SetColumnSeparator(sep)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}
