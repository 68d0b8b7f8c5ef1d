package viz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/cluster"
	"github.com/KaramelBytes/autolysis/internal/dataset"
)

// MissingLabel is the count-plot category used for absent entries.
const MissingLabel = "Missing"

// Renderer draws one chart into a PNG file at path.
type Renderer interface {
	Histogram(path, title string, vals []float64, bins int) error
	// missing is the index of the absent-cells bar, or -1.
	Count(path, title string, labels []string, counts []int, missing int) error
	TimeSeries(path, title string, times []time.Time, rows []float64) error
	Heatmap(path, title string, m *analysis.CorrelationMatrix) error
	Boxplot(path, title string, names []string, series [][]float64) error
	ClusterPairs(path, title string, f *cluster.Features, a *cluster.Assignment) error
}

// Options controls the dispatcher.
type Options struct {
	OutputDir      string
	Boxplots       bool
	HistogramBins  int
	MaxPairColumns int
	Cluster        cluster.Options
}

// DefaultOptions returns the reference chart settings.
func DefaultOptions() Options {
	return Options{OutputDir: ".", HistogramBins: 20, MaxPairColumns: 6, Cluster: cluster.DefaultOptions()}
}

// Result is the ordered output of a dispatch run.
type Result struct {
	Artifacts   []Artifact
	Diagnostics []Diagnostic
	// Clusters is nil when clustering was not eligible.
	Clusters *cluster.Assignment
}

// FileNames returns artifact file names in generation order.
func (r *Result) FileNames() []string {
	out := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		out[i] = a.FileName()
	}
	return out
}

// Dispatcher renders the chart implied by each column's category.
type Dispatcher struct {
	opt Options
	r   Renderer
	log *slog.Logger
}

// NewDispatcher returns a dispatcher; a nil renderer selects the go-chart renderer.
func NewDispatcher(opt Options, r Renderer, log *slog.Logger) *Dispatcher {
	def := DefaultOptions()
	if opt.OutputDir == "" {
		opt.OutputDir = def.OutputDir
	}
	if opt.HistogramBins <= 0 {
		opt.HistogramBins = def.HistogramBins
	}
	if opt.MaxPairColumns < 2 {
		opt.MaxPairColumns = def.MaxPairColumns
	}
	if r == nil {
		r = NewChartRenderer()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{opt: opt, r: r, log: log}
}

// Render produces per-column charts in column order, then the optional
// boxplot, the correlation heatmap and finally the cluster chart.
// Per-column failures are recorded as diagnostics; heatmap and clustering
// failures are returned.
func (d *Dispatcher) Render(ctx context.Context, t *dataset.Table, cats []analysis.Category) (*Result, error) {
	if len(cats) != len(t.Columns) {
		return nil, fmt.Errorf("render: %d categories for %d columns", len(cats), len(t.Columns))
	}
	if err := os.MkdirAll(d.opt.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	res := &Result{}
	used := map[string]int{}
	for i, col := range t.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var kind Kind
		var draw func(path string) error
		switch cats[i] {
		case analysis.CategoryNumeric:
			kind = KindHistogram
			vals := col.Present()
			draw = func(path string) error {
				return d.r.Histogram(path, "Distribution of "+col.Name, vals, d.opt.HistogramBins)
			}
		case analysis.CategoryCategorical:
			kind = KindCount
			labels, counts, missing := countValues(col)
			draw = func(path string) error {
				return d.r.Count(path, "Count of "+col.Name, labels, counts, missing)
			}
		case analysis.CategoryDatetime:
			kind = KindTimeSeries
			times, rows := timeline(col)
			draw = func(path string) error {
				return d.r.TimeSeries(path, col.Name+" over time", times, rows)
			}
		case analysis.CategoryUnsupported:
			d.log.Debug("skipping unsupported column", "column", col.Name)
			continue
		default:
			return nil, fmt.Errorf("column %q: unknown category %d", col.Name, cats[i])
		}
		path := filepath.Join(d.opt.OutputDir, uniqueFileName(used, col.Name, kind))
		d.attempt(res, col.Name, kind, path, draw)
	}

	nums := analysis.NumericColumns(t, cats)
	if d.opt.Boxplots && len(nums) > 0 {
		names := make([]string, len(nums))
		series := make([][]float64, len(nums))
		for i, c := range nums {
			names[i], series[i] = c.Name, c.Present()
		}
		d.attempt(res, AggregateColumn, KindBoxplot, filepath.Join(d.opt.OutputDir, BoxplotFile), func(path string) error {
			return d.r.Boxplot(path, "Numeric Distributions", names, series)
		})
	}
	if len(nums) < 2 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(d.opt.OutputDir, HeatmapFile)
	if err := guard(func() error { return d.r.Heatmap(path, "Correlation Heatmap", analysis.Correlate(nums)) }); err != nil {
		return nil, fmt.Errorf("correlation heatmap: %w", err)
	}
	res.Artifacts = append(res.Artifacts, Artifact{Column: AggregateColumn, Kind: KindHeatmap, Path: path})
	d.log.Info("rendered chart", "column", AggregateColumn, "kind", KindHeatmap, "path", path)

	feats, err := cluster.Prepare(nums)
	if errors.Is(err, cluster.ErrNotEligible) {
		d.log.Debug("clustering skipped: no complete numeric rows")
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	assign, err := cluster.Run(feats, d.opt.Cluster)
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}
	if len(feats.Columns) > d.opt.MaxPairColumns {
		feats = limitColumns(feats, d.opt.MaxPairColumns)
	}
	path = filepath.Join(d.opt.OutputDir, ClusterFile)
	title := fmt.Sprintf("Cluster Analysis (k=%d)", assign.K)
	if err := guard(func() error { return d.r.ClusterPairs(path, title, feats, assign) }); err != nil {
		return nil, fmt.Errorf("cluster chart: %w", err)
	}
	res.Clusters = assign
	res.Artifacts = append(res.Artifacts, Artifact{Column: AggregateColumn, Kind: KindCluster, Path: path})
	d.log.Info("rendered chart", "column", AggregateColumn, "kind", KindCluster, "path", path, "rows", len(assign.Rows))
	return res, nil
}

// attempt runs one isolated chart; failures become diagnostics.
func (d *Dispatcher) attempt(res *Result, column string, kind Kind, path string, draw func(string) error) {
	if err := guard(func() error { return draw(path) }); err != nil {
		d.log.Warn("chart failed, skipping", "column", column, "kind", kind, "err", err)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Column: column, Kind: kind, Err: err})
		return
	}
	d.log.Info("rendered chart", "column", column, "kind", kind, "path", path)
	res.Artifacts = append(res.Artifacts, Artifact{Column: column, Kind: kind, Path: path})
}

// guard converts a panic inside fn into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return fn()
}

// countValues tallies a categorical column ordered by count then first
// appearance. Absent cells get their own bar, labelled MissingLabel unless a
// real value already uses that text; missing is its index, or -1.
func countValues(col *dataset.Column) (labels []string, counts []int, missing int) {
	type bar struct {
		label  string
		n      int
		absent bool
	}
	var bars []*bar
	seen := map[string]*bar{}
	var gap *bar
	for i := 0; i < col.Len(); i++ {
		if col.Missing[i] {
			if gap == nil {
				gap = &bar{absent: true}
				bars = append(bars, gap)
			}
			gap.n++
			continue
		}
		b, ok := seen[col.Text[i]]
		if !ok {
			b = &bar{label: col.Text[i]}
			seen[b.label] = b
			bars = append(bars, b)
		}
		b.n++
	}
	if gap != nil {
		gap.label = MissingLabel
		for seen[gap.label] != nil {
			gap.label = "(" + gap.label + ")"
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].n > bars[j].n })
	missing = -1
	for i, b := range bars {
		labels = append(labels, b.label)
		counts = append(counts, b.n)
		if b.absent {
			missing = i
		}
	}
	return labels, counts, missing
}

// uniqueFileName returns the chart file name for column, suffixing the slug
// with _2, _3, ... when an earlier column in this run already produced it.
func uniqueFileName(used map[string]int, column string, kind Kind) string {
	base := FileNameFor(column, kind)
	if used[base] == 0 {
		used[base] = 1
		return base
	}
	for n := used[base] + 1; ; n++ {
		name := fmt.Sprintf("%s_%d_%s.png", Slug(column), n, kind)
		if used[name] == 0 {
			used[base] = n
			used[name] = 1
			return name
		}
	}
}

// timeline pairs each parsed timestamp with its row index.
func timeline(col *dataset.Column) ([]time.Time, []float64) {
	var times []time.Time
	var rows []float64
	for i := 0; i < col.Len(); i++ {
		if col.Missing[i] {
			continue
		}
		if ts, ok := analysis.ParseTime(col.Text[i]); ok {
			times = append(times, ts)
			rows = append(rows, float64(i))
		}
	}
	return times, rows
}

func limitColumns(f *cluster.Features, n int) *cluster.Features {
	out := &cluster.Features{Columns: f.Columns[:n], Rows: f.Rows, Values: make([][]float64, len(f.Values))}
	for i, row := range f.Values {
		out.Values[i] = row[:n]
	}
	return out
}
