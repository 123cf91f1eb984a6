package formatter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormat selects how RenderTableAs writes a table.
type TableFormat string

const (
	TablePlain    TableFormat = "plain"
	TableMarkdown TableFormat = "markdown"
	TableCSV      TableFormat = "csv"
)

var tableFormats = []TableFormat{TablePlain, TableMarkdown, TableCSV}

// ParseTableFormat accepts plain, markdown (or md) and csv.
func ParseTableFormat(s string) (TableFormat, error) {
	f := TableFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		f = TableMarkdown
	}
	if !slices.Contains(tableFormats, f) {
		return "", fmt.Errorf("unknown format %q (valid: plain, markdown, csv)", s)
	}
	return f, nil
}

// RenderTable renders a rounded terminal table.
func RenderTable(headers []string, rows [][]string, rightAligned ...int) string {
	return RenderTableAs(TablePlain, headers, rows, rightAligned...)
}

// RenderTableAs renders headers and rows in the given format. Columns listed
// in rightAligned (zero-based) are right-aligned in plain output.
func RenderTableAs(format TableFormat, headers []string, rows [][]string, rightAligned ...int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if slices.Contains(rightAligned, i) {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	switch format {
	case TableMarkdown:
		return tw.RenderMarkdown()
	case TableCSV:
		return tw.RenderCSV()
	default:
		return tw.Render()
	}
}
