package analysis

import (
	"strings"
	"time"

	"github.com/KaramelBytes/autolysis/internal/dataset"
)

// Category is the semantic type that decides which statistics and chart a column gets.
// It is a closed set; every switch over it must handle all four values.
type Category int

const (
	CategoryUnsupported Category = iota
	CategoryNumeric
	CategoryCategorical
	CategoryDatetime
)

func (c Category) String() string {
	switch c {
	case CategoryNumeric:
		return "numeric"
	case CategoryCategorical:
		return "categorical"
	case CategoryDatetime:
		return "datetime"
	default:
		return "unsupported"
	}
}

// DefaultMaxCategories is the distinct-value ceiling for a text column to be charted as categorical.
const DefaultMaxCategories = 20

// ClassifyOptions controls column classification.
type ClassifyOptions struct {
	// MaxCategories is the largest distinct non-missing count still treated as categorical.
	MaxCategories int
}

// DefaultClassifyOptions returns the reference thresholds.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{MaxCategories: DefaultMaxCategories}
}

// Classify maps one column to exactly one Category. Rules, in order:
// numeric kinds are numeric; low-cardinality text is categorical; text whose
// every value parses as a timestamp is datetime; everything else is unsupported.
func Classify(col *dataset.Column, opt ClassifyOptions) Category {
	if col == nil {
		return CategoryUnsupported
	}
	if col.Kind.IsNumeric() {
		return CategoryNumeric
	}
	maxCats := opt.MaxCategories
	if maxCats <= 0 {
		maxCats = DefaultMaxCategories
	}
	if col.Distinct() <= maxCats {
		return CategoryCategorical
	}
	if allTimes(col.PresentText()) {
		return CategoryDatetime
	}
	return CategoryUnsupported
}

// ClassifyTable classifies every column of t in column order.
func ClassifyTable(t *dataset.Table, opt ClassifyOptions) []Category {
	out := make([]Category, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = Classify(c, opt)
	}
	return out
}

// NumericColumns returns the columns classified numeric, in table order.
func NumericColumns(t *dataset.Table, cats []Category) []*dataset.Column {
	var out []*dataset.Column
	for i, c := range t.Columns {
		if i < len(cats) && cats[i] == CategoryNumeric {
			out = append(out, c)
		}
	}
	return out
}

func allTimes(vals []string) bool {
	if len(vals) == 0 {
		return false
	}
	for _, v := range vals {
		if _, ok := ParseTime(v); !ok {
			return false
		}
	}
	return true
}

var timeLayouts = []string{
	time.RFC3339, time.RFC3339Nano, "2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
	"1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006", "Jan 2, 2006", "02-Jan-2006", "2 January 2006",
}

// ParseTime tries the supported timestamp layouts in order.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
