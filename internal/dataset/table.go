package dataset

import "strings"

// Kind is the element type inferred for a column at load time.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether values of this kind are stored in Column.Numbers.
func (k Kind) IsNumeric() bool { return k == KindFloat || k == KindInt }

// Column holds one named sequence of values of a single element kind.
// Numbers is populated for numeric kinds, Text for KindText. Missing has one
// entry per row; the value slot of a missing cell is zero or empty.
type Column struct {
	Name    string
	Kind    Kind
	Numbers []float64
	Text    []string
	Missing []bool
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Missing) }

// MissingCount returns the number of absent entries.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Present returns the non-missing numeric values in row order.
func (c *Column) Present() []float64 {
	if !c.Kind.IsNumeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Numbers))
	for i, v := range c.Numbers {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// PresentText returns the non-missing text values in row order.
func (c *Column) PresentText() []string {
	if c.Kind != KindText {
		return nil
	}
	out := make([]string, 0, len(c.Text))
	for i, v := range c.Text {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Distinct returns the number of distinct non-missing values.
func (c *Column) Distinct() int {
	if c.Kind.IsNumeric() {
		seen := make(map[float64]struct{})
		for _, v := range c.Present() {
			seen[v] = struct{}{}
		}
		return len(seen)
	}
	seen := make(map[string]struct{})
	for _, v := range c.PresentText() {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Table is an ordered, immutable collection of equally sized columns.
type Table struct {
	Name    string
	Columns []*Column
	rows    int
}

// NewTable builds a table from columns that all share the same length.
func NewTable(name string, cols []*Column) *Table {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return &Table{Name: name, Columns: cols, rows: rows}
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Column looks up a column by name (case-insensitive).
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}
