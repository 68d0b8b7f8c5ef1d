package viz

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind names the chart type of an artifact.
type Kind string

const (
	KindHistogram  Kind = "histogram"
	KindCount      Kind = "count"
	KindTimeSeries Kind = "timeseries"
	KindHeatmap    Kind = "heatmap"
	KindCluster    Kind = "cluster"
	KindBoxplot    Kind = "boxplot"
)

// AggregateColumn is the source column recorded for whole-table charts.
const AggregateColumn = "aggregate"

// Fixed file names of aggregate charts.
const (
	HeatmapFile = "correlation_heatmap.png"
	ClusterFile = "cluster_analysis.png"
	BoxplotFile = "numeric_boxplot.png"
)

// Artifact is one generated chart file.
type Artifact struct {
	Column string
	Kind   Kind
	Path   string
}

// FileName returns the base name of the image, as referenced from the report.
func (a Artifact) FileName() string { return filepath.Base(a.Path) }

// Diagnostic records a chart that could not be produced.
type Diagnostic struct {
	Column string
	Kind   Kind
	Err    error
}

var unsafeRun = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Slug turns a column name into a file-name-safe token.
func Slug(name string) string {
	s := strings.Trim(unsafeRun.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if s == "" {
		return "column"
	}
	return s
}

// FileNameFor returns the deterministic image name for a column chart.
func FileNameFor(column string, kind Kind) string {
	return Slug(column) + "_" + string(kind) + ".png"
}
