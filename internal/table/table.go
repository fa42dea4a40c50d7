// Package table renders record sequences as bordered text tables and pages
// long output on a terminal.
package table

import (
	"strconv"
	"strings"

	"github.com/funnyzak/reqplay/internal/history"
	"github.com/mattn/go-runewidth"
)

// MaxCellLength is the hard ceiling on a single cell's text. Longer values
// are cut and marked with a trailing ellipsis before any wrapping happens.
const MaxCellLength = 1500

// Table accumulates rows and renders them prettytable-style: bordered, left
// aligned, a horizontal rule after every row, cells wrapped at a maximum
// display width.
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth int
}

// New creates a table with the given column headers. maxWidth bounds each
// column's display width; cell text wraps to additional lines beyond it.
func New(headers []string, maxWidth int) *Table {
	if maxWidth < 1 {
		maxWidth = 1
	}
	return &Table{headers: headers, maxWidth: maxWidth}
}

// AddRow appends one row. Cells beyond the header count are dropped, missing
// cells render empty.
func (t *Table) AddRow(cells []string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = Truncate(cells[i], MaxCellLength)
		}
	}
	t.rows = append(t.rows, row)
}

// Truncate cuts text to at most max runes, replacing the overflow with "...".
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// Render produces the bordered table as a single string.
func (t *Table) Render() string {
	cols := len(t.headers)
	if cols == 0 {
		return ""
	}

	headerLines := make([][]string, cols)
	for i, h := range t.headers {
		headerLines[i] = wrapCell(h, t.maxWidth)
	}
	rowLines := make([][][]string, len(t.rows))
	for r, row := range t.rows {
		rowLines[r] = make([][]string, cols)
		for i, cell := range row {
			rowLines[r][i] = wrapCell(cell, t.maxWidth)
		}
	}

	widths := make([]int, cols)
	measure := func(cell []string, col int) {
		for _, line := range cell {
			if w := runewidth.StringWidth(line); w > widths[col] {
				widths[col] = w
			}
		}
	}
	for i := range headerLines {
		measure(headerLines[i], i)
	}
	for _, row := range rowLines {
		for i := range row {
			measure(row[i], i)
		}
	}

	var b strings.Builder
	rule := buildRule(widths)

	b.WriteString(rule)
	writeMultiline(&b, headerLines, widths)
	b.WriteString(rule)
	for _, row := range rowLines {
		writeMultiline(&b, row, widths)
		b.WriteString(rule)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RenderRecords renders a record sequence with the history column headers.
// The id column is replaced by a 1-based ordinal so display numbering stays
// stable no matter which rows survived sanitizing.
func RenderRecords(records []history.Record, maxWidth int) string {
	t := New(history.Columns, maxWidth)
	for i, rec := range records {
		cells := rec.Cells()
		cells[0] = strconv.Itoa(i + 1)
		t.AddRow(cells)
	}
	return t.Render()
}

func buildRule(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func writeMultiline(b *strings.Builder, cells [][]string, widths []int) {
	height := 1
	for _, cell := range cells {
		if len(cell) > height {
			height = len(cell)
		}
	}
	for line := 0; line < height; line++ {
		b.WriteByte('|')
		for i, cell := range cells {
			text := ""
			if line < len(cell) {
				text = cell[line]
			}
			b.WriteByte(' ')
			b.WriteString(runewidth.FillRight(text, widths[i]))
			b.WriteString(" |")
		}
		b.WriteByte('\n')
	}
}

// wrapCell hard-wraps cell text at maxWidth display columns, keeping any
// embedded newlines.
func wrapCell(text string, maxWidth int) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		if raw == "" {
			lines = append(lines, "")
			continue
		}
		var (
			current strings.Builder
			width   int
		)
		for _, r := range raw {
			rw := runewidth.RuneWidth(r)
			if width+rw > maxWidth && width > 0 {
				lines = append(lines, current.String())
				current.Reset()
				width = 0
			}
			current.WriteRune(r)
			width += rw
		}
		lines = append(lines, current.String())
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
