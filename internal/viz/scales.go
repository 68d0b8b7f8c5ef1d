package viz

import (
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/autolysis/internal/analysis"
)

var (
	coolLow  = [3]float64{59, 76, 192}
	coolMid  = [3]float64{221, 221, 221}
	coolHigh = [3]float64{180, 4, 38}
	colorNaN = drawing.ColorFromHex("f0f0f0")
)

// coolwarm maps a coefficient in [-1, 1] onto a diverging blue-red scale.
func coolwarm(v float64) drawing.Color {
	if math.IsNaN(v) {
		return colorNaN
	}
	v = math.Max(-1, math.Min(1, v))
	from, to, t := coolMid, coolHigh, v
	if v < 0 {
		from, to, t = coolMid, coolLow, -v
	}
	mix := func(i int) uint8 { return uint8(math.Round(from[i] + (to[i]-from[i])*t)) }
	return drawing.Color{R: mix(0), G: mix(1), B: mix(2), A: 255}
}

type boxStats struct {
	q1, median, q3   float64
	whiskLo, whiskHi float64
	outliers         []float64
}

// fiveNumber computes box-and-whisker bounds with whiskers at the most
// extreme values inside 1.5 IQR of the box.
func fiveNumber(vals []float64) boxStats {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	b := boxStats{
		q1:     analysis.Quantile(sorted, 0.25),
		median: analysis.Quantile(sorted, 0.5),
		q3:     analysis.Quantile(sorted, 0.75),
	}
	iqr := b.q3 - b.q1
	lo, hi := b.q1-1.5*iqr, b.q3+1.5*iqr
	b.whiskLo, b.whiskHi = b.q1, b.q3
	for _, v := range sorted {
		if v < lo || v > hi {
			b.outliers = append(b.outliers, v)
			continue
		}
		b.whiskLo = math.Min(b.whiskLo, v)
		b.whiskHi = math.Max(b.whiskHi, v)
	}
	return b
}
