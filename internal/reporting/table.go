// Package reporting renders sessions, settlements and ledger summaries as
// plain-text tables for the terminal.
package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Amount formats a micro-unit amount with digit grouping.
func Amount(n int64) string {
	return printer.Sprintf("%d", n)
}

// Signed formats an amount with an explicit sign.
func Signed(n int64) string {
	if n > 0 {
		return "+" + Amount(n)
	}
	return Amount(n)
}

type align int

const (
	left align = iota
	right
)

// table lays out rows in columns padded to their terminal display width.
type table struct {
	headers []string
	aligns  []align
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers, aligns: make([]align, len(headers))}
}

// alignRight right-aligns the given columns.
func (t *table) alignRight(cols ...int) *table {
	for _, c := range cols {
		t.aligns[c] = right
	}
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) write(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	t.line(w, t.headers, widths)
	rule := make([]string, len(widths))
	for i, n := range widths {
		rule[i] = strings.Repeat("─", n)
	}
	t.line(w, rule, widths)
	for _, row := range t.rows {
		t.line(w, row, widths)
	}
}

func (t *table) line(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if t.aligns[i] == right {
			parts[i] = padLeft(cell, widths[i])
		} else {
			parts[i] = padRight(cell, widths[i])
		}
	}
	fmt.Fprintln(w, strings.TrimRight("  "+strings.Join(parts, "  "), " ")) //nolint:errcheck
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}

// truncate shortens s to at most width display cells, ending with "…".
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
