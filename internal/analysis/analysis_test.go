package analysis

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/autolysis/internal/dataset"
)

func table(t *testing.T, rows ...string) *dataset.Table {
	t.Helper()
	var recs [][]string
	for _, r := range rows {
		recs = append(recs, strings.Split(r, ","))
	}
	tbl, err := dataset.FromRecords("test.csv", recs)
	require.NoError(t, err)
	return tbl
}

func textColumn(vals ...string) *dataset.Column {
	return &dataset.Column{Name: "c", Kind: dataset.KindText, Text: vals, Missing: make([]bool, len(vals))}
}

func TestClassifyCategoryBoundary(t *testing.T) {
	opt := DefaultClassifyOptions()
	var twenty, twentyOne []string
	for i := 0; i < 21; i++ {
		v := fmt.Sprintf("label-%02d", i)
		if i < 20 {
			twenty = append(twenty, v)
		}
		twentyOne = append(twentyOne, v)
	}
	assert.Equal(t, CategoryCategorical, Classify(textColumn(twenty...), opt))
	assert.Equal(t, CategoryUnsupported, Classify(textColumn(twentyOne...), opt))
}

func TestClassifyDatetimeAboveThreshold(t *testing.T) {
	var dates []string
	for i := 1; i <= 25; i++ {
		dates = append(dates, fmt.Sprintf("2024-01-%02d", i))
	}
	assert.Equal(t, CategoryDatetime, Classify(textColumn(dates...), DefaultClassifyOptions()))

	// one unparsable value makes the whole column unsupported
	dates[3] = "not a date"
	assert.Equal(t, CategoryUnsupported, Classify(textColumn(dates...), DefaultClassifyOptions()))
}

func TestClassifyNumericAndNil(t *testing.T) {
	col := &dataset.Column{Kind: dataset.KindInt, Numbers: []float64{1}, Missing: []bool{false}}
	assert.Equal(t, CategoryNumeric, Classify(col, DefaultClassifyOptions()))
	assert.Equal(t, CategoryUnsupported, Classify(nil, DefaultClassifyOptions()))
}

func TestClassifyAlwaysClosedSet(t *testing.T) {
	tbl := table(t, "n,c,d", "1,a,2024-01-01", "2,b,2024-01-02", ",,")
	for _, c := range ClassifyTable(tbl, DefaultClassifyOptions()) {
		assert.Contains(t, []Category{CategoryNumeric, CategoryCategorical, CategoryDatetime, CategoryUnsupported}, c)
	}
}

func TestSummarizeMissingMap(t *testing.T) {
	tbl := table(t, "a,b,c", "1,x,", "2,,", ",y,")
	cats := ClassifyTable(tbl, DefaultClassifyOptions())
	p, err := Summarize(tbl, cats)
	require.NoError(t, err)
	require.Len(t, p.Missing, len(tbl.Columns))
	want := []int{1, 1, 3}
	for i, m := range p.Missing {
		assert.Equal(t, tbl.Columns[i].Name, m.Column)
		assert.Equal(t, want[i], m.Count)
		assert.GreaterOrEqual(t, m.Count, 0)
		assert.LessOrEqual(t, m.Count, tbl.Rows())
	}
}

func TestSummarizeNumericAndText(t *testing.T) {
	tbl := table(t, "v,s", "1,a", "2,b", "3,a", "4,c")
	p, err := Summarize(tbl, ClassifyTable(tbl, DefaultClassifyOptions()))
	require.NoError(t, err)

	n := p.Columns[0].Numeric
	require.NotNil(t, n)
	assert.InDelta(t, 2.5, n.Mean, 1e-12)
	assert.InDelta(t, 1.2909944, n.Std, 1e-6)
	assert.Equal(t, 1.0, n.Min)
	assert.InDelta(t, 1.75, n.Q1, 1e-12)
	assert.InDelta(t, 2.5, n.Median, 1e-12)
	assert.InDelta(t, 3.25, n.Q3, 1e-12)
	assert.Equal(t, 4.0, n.Max)

	c := p.Columns[1].Categorical
	require.NotNil(t, c)
	assert.Equal(t, 3, c.Unique)
	assert.Equal(t, "a", c.Top)
	assert.Equal(t, 2, c.Freq)
}

func TestSummarizeSingleValueStdIsNaN(t *testing.T) {
	tbl := table(t, "v", "5")
	p, err := Summarize(tbl, ClassifyTable(tbl, DefaultClassifyOptions()))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(p.Columns[0].Numeric.Std))
	assert.Equal(t, 5.0, p.Columns[0].Numeric.Median)
}

func TestSummarizeCategoryMismatch(t *testing.T) {
	tbl := table(t, "a", "1")
	_, err := Summarize(tbl, nil)
	require.Error(t, err)
}

func TestCorrelationPresence(t *testing.T) {
	none := table(t, "s", "a", "b")
	p, err := Summarize(none, ClassifyTable(none, DefaultClassifyOptions()))
	require.NoError(t, err)
	assert.Nil(t, p.Correlation)

	one := table(t, "x,s", "1,a", "2,b")
	p, err = Summarize(one, ClassifyTable(one, DefaultClassifyOptions()))
	require.NoError(t, err)
	assert.Nil(t, p.Correlation)

	two := table(t, "x,y", "1,2", "2,4", "3,7")
	p, err = Summarize(two, ClassifyTable(two, DefaultClassifyOptions()))
	require.NoError(t, err)
	require.NotNil(t, p.Correlation)
}

func TestCorrelationSymmetricUnitDiagonal(t *testing.T) {
	tbl := table(t, "x,y,z,k", "1,2,9,5", "2,4,7,5", "3,7,8,5", "4,8,1,5", ",3,2,5")
	p, err := Summarize(tbl, ClassifyTable(tbl, DefaultClassifyOptions()))
	require.NoError(t, err)
	m := p.Correlation
	require.NotNil(t, m)
	require.Equal(t, []string{"x", "y", "z", "k"}, m.Columns)
	for i := range m.Columns {
		for j := range m.Columns {
			a, b := m.Values[i][j], m.Values[j][i]
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b))
				continue
			}
			assert.Equal(t, a, b)
			assert.GreaterOrEqual(t, a, -1.0)
			assert.LessOrEqual(t, a, 1.0)
		}
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, m.Values[i][i])
	}
	// constant column has no defined coefficient
	assert.True(t, math.IsNaN(m.Values[3][3]))
	r, ok := m.At("x", "y")
	require.True(t, ok)
	assert.Greater(t, r, 0.9)
}

func TestPayloadCopiesAndRenders(t *testing.T) {
	tbl := table(t, "x,y,s", "1,2,a", "2,4,b", "3,7,a")
	p, err := Summarize(tbl, ClassifyTable(tbl, DefaultClassifyOptions()))
	require.NoError(t, err)
	arts := []string{"x_histogram.png"}
	pl := NewPayload("test.csv", p, arts)
	arts[0] = "changed.png"
	p.Columns[0].Name = "mutated"
	p.Correlation.Values[0][1] = 42

	assert.Equal(t, []string{"x_histogram.png"}, pl.Artifacts)
	assert.Equal(t, "x", pl.Profiles[0].Name)
	assert.NotEqual(t, 42.0, pl.Correlation.Values[0][1])

	txt := pl.Text()
	assert.Contains(t, txt, "[SUMMARY STATISTICS]")
	assert.Contains(t, txt, "- s: categorical (count 3) | unique 2, top a (freq 2)")
	assert.Contains(t, txt, "[MISSING VALUES]")
	assert.Contains(t, txt, "[CORRELATIONS]")
	assert.Contains(t, txt, "x_histogram.png")
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-03-01", "2024/03/01", "2024-03-01 10:00:00", "Mar 1, 2024", "2024-03-01T10:00:00Z"} {
		_, ok := ParseTime(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseTime("banana")
	assert.False(t, ok)
}
