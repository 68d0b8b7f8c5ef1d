package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/autolysis/internal/ai"
	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/cluster"
	"github.com/KaramelBytes/autolysis/internal/config"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/KaramelBytes/autolysis/internal/logging"
	"github.com/KaramelBytes/autolysis/internal/narrative"
	"github.com/KaramelBytes/autolysis/internal/viz"
)

// fileRenderer writes a marker file for every chart.
type fileRenderer struct{}

func (fileRenderer) write(path string) error { return os.WriteFile(path, []byte("png"), 0o644) }

func (r fileRenderer) Histogram(path, _ string, _ []float64, _ int) error { return r.write(path) }
func (r fileRenderer) Count(path, _ string, _ []string, _ []int, _ int) error { return r.write(path) }
func (r fileRenderer) TimeSeries(path, _ string, _ []time.Time, _ []float64) error {
	return r.write(path)
}
func (r fileRenderer) Heatmap(path, _ string, _ *analysis.CorrelationMatrix) error {
	return r.write(path)
}
func (r fileRenderer) Boxplot(path, _ string, _ []string, _ [][]float64) error { return r.write(path) }
func (r fileRenderer) ClusterPairs(path, _ string, _ *cluster.Features, _ *cluster.Assignment) error {
	return r.write(path)
}

type fakeNarrator struct {
	text string
	err  error
	got  *analysis.Payload
}

func (f *fakeNarrator) Generate(_ context.Context, p *analysis.Payload) (narrative.Result, error) {
	f.got = p
	if f.err != nil {
		return narrative.Result{Text: narrative.Placeholder}, f.err
	}
	return narrative.Result{Text: f.text}, nil
}

// threeColumnCSV has one numeric column, one categorical column with five
// distinct values and one free-text column that never parses as a date.
func threeColumnCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("score,region,note\n")
	regions := []string{"north", "south", "east", "west", "central"}
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "%d.5,%s,remark number %d\n", i, regions[i%5], i)
	}
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func baseOptions(t *testing.T, path string, n Narrator) Options {
	return Options{
		DatasetPath: path,
		OutputDir:   filepath.Join(t.TempDir(), "out"),
		Charts:      viz.DefaultOptions(),
		Narrator:    n,
		Renderer:    fileRenderer{},
		Log:         logging.Discard(),
	}
}

func TestRunThreeColumnEndToEnd(t *testing.T) {
	n := &fakeNarrator{text: "Scores climb steadily."}
	res, err := Run(context.Background(), baseOptions(t, threeColumnCSV(t), n))
	require.NoError(t, err)

	require.Len(t, res.Artifacts, 2)
	assert.Equal(t, viz.KindHistogram, res.Artifacts[0].Kind)
	assert.Equal(t, viz.KindCount, res.Artifacts[1].Kind)
	assert.Nil(t, res.Clusters)
	assert.NoFileExists(t, filepath.Join(res.OutputDir, viz.HeatmapFile))
	assert.NoFileExists(t, filepath.Join(res.OutputDir, viz.ClusterFile))
	assert.NotEmpty(t, res.RunID)

	md, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	text := string(md)
	assert.True(t, strings.HasPrefix(text, "# Analysis Report\n\nScores climb steadily.\n"))
	assert.Contains(t, text, "](score_histogram.png)")
	assert.Contains(t, text, "](region_count.png)")
	assert.Equal(t, 2, strings.Count(text, "!["))

	require.NotNil(t, n.got)
	assert.Equal(t, []string{"score_histogram.png", "region_count.png"}, n.got.Artifacts)
	assert.Equal(t, "survey.csv", n.got.Dataset)
}

func TestRunNarrativeFailureKeepsReport(t *testing.T) {
	n := &fakeNarrator{err: &ai.UnreachableError{Host: "proxy", Err: errors.New("connection refused")}}
	opt := baseOptions(t, threeColumnCSV(t), n)
	opt.HTML = true
	res, err := Run(context.Background(), opt)
	require.NoError(t, err)
	require.Error(t, res.NarrativeErr)

	md, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), narrative.Placeholder)
	assert.Contains(t, string(md), "![Score Histogram](score_histogram.png)")
	assert.Contains(t, string(md), "![Region Count](region_count.png)")
	assert.FileExists(t, res.HTMLPath)
}

func TestRunMissingCredentialStopsAfterLoad(t *testing.T) {
	n := &fakeNarrator{text: "unused"}
	opt := baseOptions(t, threeColumnCSV(t), n)
	opt.Credential = func() (string, error) { return "", &config.Error{Key: config.CredentialEnv} }
	_, err := Run(context.Background(), opt)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Nil(t, n.got)
	assert.NoDirExists(t, opt.OutputDir)
}

func TestRunLoadErrorIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	opt := baseOptions(t, path, &fakeNarrator{})
	_, err := Run(context.Background(), opt)
	var fe *dataset.FormatError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)
	assert.NoDirExists(t, opt.OutputDir)
}

func TestRunNumericPairProducesHeatmapAndClusters(t *testing.T) {
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i*i)
	}
	path := filepath.Join(t.TempDir(), "pairs.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	res, err := Run(context.Background(), baseOptions(t, path, &fakeNarrator{text: "ok"}))
	require.NoError(t, err)
	names := make([]string, len(res.Artifacts))
	for i, a := range res.Artifacts {
		names[i] = a.FileName()
	}
	assert.Equal(t, []string{"x_histogram.png", "y_histogram.png", viz.HeatmapFile, viz.ClusterFile}, names)
	require.NotNil(t, res.Clusters)
	assert.Len(t, res.Clusters.Labels, 9)
}

func TestRunDefaultsOutputDirToStem(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	src := threeColumnCSV(t)
	opt := baseOptions(t, src, &fakeNarrator{text: "ok"})
	opt.OutputDir = ""
	res, err := Run(context.Background(), opt)
	require.NoError(t, err)
	assert.Equal(t, "survey", res.OutputDir)
	assert.FileExists(t, filepath.Join(dir, "survey", ReportFile))
}
