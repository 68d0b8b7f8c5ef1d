package viz

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

var errNoValues = errors.New("no values to plot")

// bins computes equal-width histogram edges and counts. A zero-width range is
// widened by 0.5 on each side so constant data still renders one bar.
func bins(vals []float64, n int) (edges []float64, counts []float64, err error) {
	if len(vals) == 0 {
		return nil, nil, errNoValues
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, errors.New("non-finite value in histogram input")
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(n)
	edges = make([]float64, n+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[n] = hi
	counts = make([]float64, n)
	for _, v := range vals {
		idx := int((v - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		counts[idx]++
	}
	return edges, counts, nil
}

// kde evaluates a Gaussian kernel density estimate with Scott's bandwidth at
// points evenly spaced over [lo, hi]. It returns nil when the bandwidth is zero.
func kde(vals []float64, lo, hi float64, points int) (xs, ys []float64) {
	if len(vals) < 2 {
		return nil, nil
	}
	sd := stat.StdDev(vals, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil, nil
	}
	h := sd * math.Pow(float64(len(vals)), -0.2)
	norm := 1 / (float64(len(vals)) * h * math.Sqrt(2*math.Pi))
	xs = make([]float64, points)
	ys = make([]float64, points)
	step := (hi - lo) / float64(points-1)
	for i := range xs {
		x := lo + float64(i)*step
		var sum float64
		for _, v := range vals {
			u := (x - v) / h
			sum += math.Exp(-0.5 * u * u)
		}
		xs[i], ys[i] = x, sum*norm
	}
	return xs, ys
}
