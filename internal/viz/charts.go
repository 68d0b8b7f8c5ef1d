package viz

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/cluster"
	"github.com/KaramelBytes/autolysis/internal/utils"
)

// ChartRenderer draws PNG charts with go-chart.
type ChartRenderer struct {
	Width  int
	Height int
}

// NewChartRenderer returns a renderer with the default 800x600 canvas.
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{Width: 800, Height: 600}
}

func renderChart(path string, ch chart.Chart) error {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Histogram draws a step-filled histogram with a Gaussian density overlay
// scaled to counts.
func (cr *ChartRenderer) Histogram(path, title string, vals []float64, nbins int) error {
	edges, counts, err := bins(vals, nbins)
	if err != nil {
		return err
	}
	xs := []float64{edges[0]}
	ys := []float64{0}
	for i, c := range counts {
		xs = append(xs, edges[i], edges[i+1])
		ys = append(ys, c, c)
	}
	xs = append(xs, edges[len(edges)-1])
	ys = append(ys, 0)
	top := floats.Max(counts)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "count",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: colorBarEdge, StrokeWidth: 1, FillColor: colorBar.WithAlpha(160)},
		},
	}
	lo, hi := edges[0], edges[len(edges)-1]
	if kx, ky := kde(vals, lo, hi, 200); kx != nil {
		binWidth := edges[1] - edges[0]
		floats.Scale(float64(len(vals))*binWidth, ky)
		top = math.Max(top, floats.Max(ky))
		series = append(series, chart.ContinuousSeries{
			Name:    "density",
			XValues: kx,
			YValues: ky,
			Style:   chart.Style{StrokeColor: colorDensity, StrokeWidth: 2},
		})
	}
	ch := chart.Chart{
		Title:      title,
		Width:      cr.Width,
		Height:     cr.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "value", Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		YAxis:      chart.YAxis{Name: "count", Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1}},
		Series:     series,
	}
	return renderChart(path, ch)
}

// TimeSeries draws row index against parsed timestamps.
func (cr *ChartRenderer) TimeSeries(path, title string, times []time.Time, rows []float64) error {
	if len(times) < 2 {
		return errors.New("time series needs at least two timestamps")
	}
	ch := chart.Chart{
		Title:      title,
		Width:      cr.Width,
		Height:     cr.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "time", ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:      chart.YAxis{Name: "row index"},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "row",
				XValues: times,
				YValues: rows,
				Style:   chart.Style{StrokeColor: colorBar, StrokeWidth: 1.5},
			},
		},
	}
	return renderChart(path, ch)
}

// Count draws a horizontal bar per label, largest first. The bar at index
// missing is drawn in grey.
func (cr *ChartRenderer) Count(path, title string, labels []string, counts []int, missing int) error {
	if len(labels) == 0 {
		return errNoValues
	}
	const left, right, top, barH, gap = 170, 70, 50, 22, 6
	h := top + len(labels)*(barH+gap) + 30
	c, err := newCanvas(cr.Width, h)
	if err != nil {
		return err
	}
	c.title(title)
	maxC := 0
	for _, n := range counts {
		if n > maxC {
			maxC = n
		}
	}
	if maxC == 0 {
		return errNoValues
	}
	x0, x1 := left, cr.Width-right
	c.line(x0, top-4, x0, h-26, colorInk, 1)
	for i, label := range labels {
		y := top + i*(barH+gap)
		w := scale(float64(counts[i]), 0, float64(maxC), x0, x1)
		col := colorBar
		if i == missing {
			col = colorGrid
		}
		c.fillRect(x0, y, w, y+barH, col)
		c.textRight(truncate(label, 24), x0-8, y+barH/2, 9, colorInk)
		c.text(fmt.Sprintf("%d", counts[i]), w+6, y+barH/2, 9, colorInk)
	}
	c.textCentered("count", (x0+x1)/2, h-12, 9, colorInk)
	return c.save(path)
}

// Heatmap draws the correlation matrix with annotated coefficients on a
// blue-white-red scale over [-1, 1].
func (cr *ChartRenderer) Heatmap(path, title string, m *analysis.CorrelationMatrix) error {
	if m == nil || len(m.Columns) < 2 {
		return errors.New("heatmap needs at least two columns")
	}
	n := len(m.Columns)
	cell := 520 / n
	if cell > 90 {
		cell = 90
	}
	if cell < 18 {
		cell = 18
	}
	const left, top = 160, 60
	w := left + n*cell + 110
	h := top + n*cell + 120
	c, err := newCanvas(w, h)
	if err != nil {
		return err
	}
	c.title(title)
	fontSize := math.Min(11, float64(cell)/4.5)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.Values[i][j]
			x, y := left+j*cell, top+i*cell
			c.fillRect(x, y, x+cell, y+cell, coolwarm(v))
			ink := colorInk
			if !math.IsNaN(v) && math.Abs(v) > 0.6 {
				ink = colorWhite
			}
			label := "nan"
			if !math.IsNaN(v) {
				label = fmt.Sprintf("%.2f", v)
			}
			c.textCentered(label, x+cell/2, y+cell/2, fontSize, ink)
		}
		c.textRight(truncate(m.Columns[i], 20), left-8, top+i*cell+cell/2, 9, colorInk)
	}
	for j := 0; j < n; j++ {
		x := left + j*cell + cell/2
		c.r.ResetStyle()
		c.r.SetFont(c.font)
		c.r.SetFontSize(9)
		c.r.SetFontColor(colorInk)
		c.r.SetTextRotation(-math.Pi / 4)
		c.r.Text(truncate(m.Columns[j], 20), x, top+n*cell+14)
		c.r.ClearTextRotation()
	}
	// colour bar
	bx := left + n*cell + 30
	for k := 0; k <= 100; k++ {
		v := 1 - float64(k)/50
		y := top + k*(n*cell)/101
		c.fillRect(bx, y, bx+18, y+(n*cell)/101+1, coolwarm(v))
	}
	c.text("1.0", bx+24, top, 9, colorInk)
	c.text("0.0", bx+24, top+n*cell/2, 9, colorInk)
	c.text("-1.0", bx+24, top+n*cell, 9, colorInk)
	return c.save(path)
}

// Boxplot draws one box per numeric series on a shared axis: quartile box,
// median line, whiskers at 1.5 IQR and outlier dots.
func (cr *ChartRenderer) Boxplot(path, title string, names []string, series [][]float64) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return errNoValues
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	const left, right, top, bottom = 80, 30, 50, 80
	c, err := newCanvas(cr.Width, cr.Height)
	if err != nil {
		return err
	}
	c.title(title)
	y0, y1 := cr.Height-bottom, top
	c.line(left, y1, left, y0, colorInk, 1)
	for k := 0; k <= 4; k++ {
		v := lo + (hi-lo)*float64(k)/4
		y := scale(v, lo, hi, y0, y1)
		c.line(left, y, cr.Width-right, y, colorGrid, 1)
		c.textRight(formatTick(v), left-6, y, 8, colorInk)
	}
	slot := (cr.Width - left - right) / len(series)
	for i, s := range series {
		cx := left + slot*i + slot/2
		c.textCentered(truncate(names[i], 14), cx, y0+16, 9, colorInk)
		if len(s) == 0 {
			continue
		}
		b := fiveNumber(s)
		half := slot / 4
		ys := func(v float64) int { return scale(v, lo, hi, y0, y1) }
		col := paletteColor(i)
		c.line(cx, ys(b.whiskLo), cx, ys(b.q1), colorInk, 1)
		c.line(cx, ys(b.q3), cx, ys(b.whiskHi), colorInk, 1)
		c.line(cx-half/2, ys(b.whiskLo), cx+half/2, ys(b.whiskLo), colorInk, 1)
		c.line(cx-half/2, ys(b.whiskHi), cx+half/2, ys(b.whiskHi), colorInk, 1)
		c.fillRect(cx-half, ys(b.q3), cx+half, ys(b.q1), col.WithAlpha(180))
		c.strokeRect(cx-half, ys(b.q3), cx+half, ys(b.q1), colorInk, 1)
		c.line(cx-half, ys(b.median), cx+half, ys(b.median), colorInk, 2)
		for _, o := range b.outliers {
			c.dot(cx, ys(o), 2.5, colorInk)
		}
	}
	return c.save(path)
}

// ClusterPairs draws a scatter matrix of the features coloured by cluster label.
func (cr *ChartRenderer) ClusterPairs(path, title string, f *cluster.Features, a *cluster.Assignment) error {
	if f == nil || a == nil || len(f.Columns) < 2 {
		return errors.New("cluster chart needs at least two features")
	}
	if len(a.Labels) != len(f.Values) {
		return fmt.Errorf("cluster chart: %d labels for %d rows", len(a.Labels), len(f.Values))
	}
	m := len(f.Columns)
	const left, top, pad = 20, 70, 6
	cell := 880 / m
	w := left*2 + m*cell
	h := top + m*cell + 20
	c, err := newCanvas(w, h)
	if err != nil {
		return err
	}
	c.title(title)
	for k := 0; k < a.K; k++ {
		x := left + k*110
		c.dot(x+6, 46, 5, paletteColor(k))
		c.text(fmt.Sprintf("cluster %d", k), x+16, 46, 9, colorInk)
	}
	lo := make([]float64, m)
	hi := make([]float64, m)
	for j := 0; j < m; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
		for _, row := range f.Values {
			lo[j], hi[j] = math.Min(lo[j], row[j]), math.Max(hi[j], row[j])
		}
	}
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			x0, y0 := left+j*cell, top+i*cell
			c.strokeRect(x0, y0, x0+cell-pad, y0+cell-pad, colorGrid, 1)
			if i == j {
				c.textCentered(truncate(f.Columns[i], 18), x0+(cell-pad)/2, y0+(cell-pad)/2, 10, colorInk)
				continue
			}
			for r, row := range f.Values {
				px := scale(row[j], lo[j], hi[j], x0+pad, x0+cell-2*pad)
				py := scale(row[i], lo[i], hi[i], y0+cell-2*pad, y0+pad)
				c.dot(px, py, 2, paletteColor(a.Labels[r]))
			}
		}
	}
	return c.save(path)
}
