package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/autolysis/internal/dataset"
)

// NumericStats are the descriptive statistics for a numeric column.
// Fields are NaN when there are too few values to compute them.
type NumericStats struct {
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// CategoricalStats describe a non-numeric column.
type CategoricalStats struct {
	Unique int
	Top    string
	Freq   int
}

// ColumnProfile is the read-only summary of one column.
type ColumnProfile struct {
	Name     string
	Category Category
	Count    int
	Missing  int
	// Exactly one of Numeric/Categorical is set.
	Numeric     *NumericStats
	Categorical *CategoricalStats
}

// MissingCount is one entry of the missing-value map, kept in column order.
type MissingCount struct {
	Column string
	Count  int
}

// CorrelationMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// At returns the coefficient for two named columns.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// Profile is the statistical part of the analysis payload.
type Profile struct {
	Rows        int
	Columns     []ColumnProfile
	Missing     []MissingCount
	Correlation *CorrelationMatrix // nil unless at least two numeric columns exist
}

// Summarize computes summary statistics for every column, the missing-value
// map, and the correlation matrix when there are at least two numeric columns.
func Summarize(t *dataset.Table, cats []Category) (*Profile, error) {
	if len(cats) != len(t.Columns) {
		return nil, fmt.Errorf("summarize: %d categories for %d columns", len(cats), len(t.Columns))
	}
	p := &Profile{Rows: t.Rows()}
	p.Columns = make([]ColumnProfile, 0, len(t.Columns))
	p.Missing = make([]MissingCount, 0, len(t.Columns))
	for i, c := range t.Columns {
		miss := c.MissingCount()
		cp := ColumnProfile{Name: c.Name, Category: cats[i], Count: c.Len() - miss, Missing: miss}
		if c.Kind.IsNumeric() {
			cp.Numeric = describeNumeric(c.Present())
		} else {
			cp.Categorical = describeText(c.PresentText())
		}
		p.Columns = append(p.Columns, cp)
		p.Missing = append(p.Missing, MissingCount{Column: c.Name, Count: miss})
	}
	if nums := NumericColumns(t, cats); len(nums) >= 2 {
		p.Correlation = Correlate(nums)
	}
	return p, nil
}

func describeNumeric(vals []float64) *NumericStats {
	nan := math.NaN()
	s := &NumericStats{Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	if len(vals) == 0 {
		return s
	}
	data := stats.Float64Data(vals)
	s.Mean, _ = data.Mean()
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	if len(vals) > 1 {
		s.Std, _ = data.StandardDeviationSample()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	s.Q1 = Quantile(sorted, 0.25)
	s.Median = Quantile(sorted, 0.5)
	s.Q3 = Quantile(sorted, 0.75)
	return s
}

// describeText counts distinct values and the most frequent one; ties go to
// the value seen first.
func describeText(vals []string) *CategoricalStats {
	s := &CategoricalStats{}
	counts := make(map[string]int, len(vals))
	var order []string
	for _, v := range vals {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	s.Unique = len(counts)
	for _, v := range order {
		if counts[v] > s.Freq {
			s.Top, s.Freq = v, counts[v]
		}
	}
	return s
}

// Correlate computes pairwise-complete Pearson coefficients. The diagonal is 1
// for columns with non-zero variance and NaN otherwise.
func Correlate(cols []*dataset.Column) *CorrelationMatrix {
	n := len(cols)
	m := &CorrelationMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			x, y := pairwise(cols[a], cols[b])
			r := math.NaN()
			if a == b {
				if len(x) >= 2 && stat.Variance(x, nil) > 0 {
					r = 1
				}
			} else if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
				if math.IsInf(r, 0) {
					r = math.NaN()
				}
				if r > 1 {
					r = 1
				} else if r < -1 {
					r = -1
				}
			}
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

// pairwise returns the values of two columns on rows where both are present.
func pairwise(a, b *dataset.Column) (x, y []float64) {
	for i := 0; i < a.Len() && i < b.Len(); i++ {
		if a.Missing[i] || b.Missing[i] {
			continue
		}
		x = append(x, a.Numbers[i])
		y = append(y, b.Numbers[i])
	}
	return x, y
}

// Quantile uses linear interpolation between closest ranks on sorted data.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
