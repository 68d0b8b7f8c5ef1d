package viz

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/cluster"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic), "%s is not a PNG", path)
}

func TestChartRendererWritesPNGs(t *testing.T) {
	dir := t.TempDir()
	r := NewChartRenderer()

	vals := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 9}
	p := filepath.Join(dir, "h.png")
	require.NoError(t, r.Histogram(p, "Distribution of v", vals, 20))
	assertPNG(t, p)

	p = filepath.Join(dir, "c.png")
	require.NoError(t, r.Count(p, "Count of s", []string{"a", MissingLabel, "b"}, []int{5, 3, 1}, 1))
	assertPNG(t, p)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p = filepath.Join(dir, "t.png")
	require.NoError(t, r.TimeSeries(p, "d over time", []time.Time{base, base.Add(48 * time.Hour), base.Add(96 * time.Hour)}, []float64{0, 1, 2}))
	assertPNG(t, p)

	m := &analysis.CorrelationMatrix{Columns: []string{"x", "y"}, Values: [][]float64{{1, -0.8}, {-0.8, 1}}}
	p = filepath.Join(dir, "m.png")
	require.NoError(t, r.Heatmap(p, "Correlation Heatmap", m))
	assertPNG(t, p)

	p = filepath.Join(dir, "b.png")
	require.NoError(t, r.Boxplot(p, "Numeric Distributions", []string{"x", "y"}, [][]float64{vals, {}}))
	assertPNG(t, p)

	f := &cluster.Features{Columns: []string{"x", "y"}, Rows: []int{0, 1, 2}, Values: [][]float64{{0, 0}, {1, 1}, {5, 5}}}
	a := &cluster.Assignment{K: 2, Rows: f.Rows, Labels: []int{0, 0, 1}}
	p = filepath.Join(dir, "k.png")
	require.NoError(t, r.ClusterPairs(p, "Cluster Analysis (k=2)", f, a))
	assertPNG(t, p)
}

func TestChartRendererRejectsDegenerateInput(t *testing.T) {
	dir := t.TempDir()
	r := NewChartRenderer()
	assert.Error(t, r.Histogram(filepath.Join(dir, "h.png"), "x", nil, 20))
	assert.Error(t, r.TimeSeries(filepath.Join(dir, "t.png"), "x", []time.Time{time.Now()}, []float64{0}))
	assert.Error(t, r.Count(filepath.Join(dir, "c.png"), "x", nil, nil, -1))
	assert.Error(t, r.Boxplot(filepath.Join(dir, "b.png"), "x", []string{"a"}, [][]float64{{}}))
	assert.Error(t, r.Heatmap(filepath.Join(dir, "m.png"), "x", &analysis.CorrelationMatrix{Columns: []string{"a"}}))
}
