package cmd

import (
	"fmt"
	"strings"
)

// renderTable prints rows as a fixed-width, space-separated table with
// one header line and a dashed separator underneath. Every subcommand
// that prints to a terminal (as opposed to --output json) goes through
// this rather than a general-purpose table library, since the columns
// here are always a short, known set of strings the caller has already
// formatted.
func renderTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no data to display")
		return
	}

	widths := columnWidths(headers, rows)
	printTableRow(headers, widths)
	printTableSeparator(widths)
	for _, row := range rows {
		printTableRow(row, widths)
	}
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

func printTableRow(cells []string, widths []int) {
	parts := make([]string, len(widths))
	for i := range widths {
		var v string
		if i < len(cells) {
			v = cells[i]
		}
		parts[i] = fmt.Sprintf("%-*s", widths[i], v)
	}
	fmt.Println(strings.Join(parts, " "))
}

func printTableSeparator(widths []int) {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w)
	}
	fmt.Println(strings.Join(parts, " "))
}
