package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// ReadOptions mirrors the handful of csv.Reader settings that matter for the
// files we consume.
type ReadOptions struct {
	// Delimiter defaults to ',' when zero.
	Delimiter rune
	Comment   rune

	// SkipInitialSpace collapses runs of the delimiter, which is what
	// space-separated exports need.
	SkipInitialSpace bool
}

// Read parses a delimited file with a header row. Empty header cells are named
// "Unnamed: <position>", the way our historical exports label a trailing
// delimiter or an index column. A column is numeric when every non-empty cell
// parses as a float; empty cells in a numeric column become NaN.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = ','
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = opts.SkipInitialSpace && cr.Comma != ' '

	entries, err := cr.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	if cr.Comma == ' ' && opts.SkipInitialSpace {
		for i, row := range entries {
			entries[i] = collapseEmpty(row)
		}
	}

	if len(entries) == 0 {
		return nil, pfx.Err(fmt.Errorf("no header row found"))
	}

	header := entries[0]
	names := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		names[i] = name
	}

	rows := entries[1:]
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, pfx.Err(fmt.Errorf("line %d has %d fields but the header has %d", i+2, len(row), len(names)))
		}
	}

	columns := make([]*Column, 0, len(names))
	for j, name := range names {
		cells := make([]string, len(rows))
		for i, row := range rows {
			cells[i] = row[j]
		}
		columns = append(columns, inferColumn(name, cells))
	}

	t, err := New(columns...)
	if err != nil {
		return nil, pfx.Err(err)
	}
	t.nrow = len(rows)

	return t, nil
}

// collapseEmpty removes the empty fields produced by repeated spaces, except
// for a trailing empty field, which marks a trailing delimiter.
func collapseEmpty(row []string) []string {
	out := row[:0]
	for i, v := range row {
		if v == "" && i != len(row)-1 {
			continue
		}
		out = append(out, v)
	}
	return out
}

func inferColumn(name string, cells []string) *Column {
	floats := make([]float64, len(cells))
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" || cell == "NA" || cell == "NaN" {
			floats[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return &Column{Name: name, String: cells}
		}
		floats[i] = v
	}

	return &Column{Name: name, Float: floats}
}

// Write emits the table as a delimited file with a header row.
func (t *Table) Write(w io.Writer, delimiter rune) error {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}

	if err := cw.Write(t.Names()); err != nil {
		return pfx.Err(err)
	}

	row := make([]string, len(t.columns))
	for i := 0; i < t.nrow; i++ {
		for j, c := range t.columns {
			if c.Numeric() {
				row[j] = formatFloat(c.Float[i])
				continue
			}
			row[j] = c.String[i]
		}
		if err := cw.Write(row); err != nil {
			return pfx.Err(err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
