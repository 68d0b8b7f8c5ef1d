package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/autolysis/internal/dataset"
)

var (
	// ErrNotEligible means clustering preconditions are not met; callers skip the step.
	ErrNotEligible = errors.New("clustering not eligible")
	// ErrTooFewRows means fewer complete rows than clusters.
	ErrTooFewRows = errors.New("fewer rows than clusters")
)

// Options controls k-means.
type Options struct {
	K       int
	Seed    int64
	NInit   int
	MaxIter int
	Tol     float64
}

// DefaultOptions returns the reference settings: three clusters, seed 42.
func DefaultOptions() Options {
	return Options{K: 3, Seed: 42, NInit: 10, MaxIter: 300, Tol: 1e-4}
}

// Features is the complete-case numeric matrix used for clustering.
type Features struct {
	Columns []string
	// Rows holds the original table row index of each entry in Values.
	Rows   []int
	Values [][]float64
}

// Prepare selects rows that have a value in every given numeric column.
// It returns ErrNotEligible for fewer than two columns or zero surviving rows.
func Prepare(cols []*dataset.Column) (*Features, error) {
	if len(cols) < 2 {
		return nil, ErrNotEligible
	}
	f := &Features{Columns: make([]string, len(cols))}
	for i, c := range cols {
		f.Columns[i] = c.Name
	}
	n := cols[0].Len()
rows:
	for r := 0; r < n; r++ {
		row := make([]float64, len(cols))
		for j, c := range cols {
			if r >= c.Len() || c.Missing[r] {
				continue rows
			}
			row[j] = c.Numbers[r]
		}
		f.Rows = append(f.Rows, r)
		f.Values = append(f.Values, row)
	}
	if len(f.Rows) == 0 {
		return nil, ErrNotEligible
	}
	return f, nil
}

// Standardize scales each feature to zero mean and unit population variance.
// Constant features are centred but not scaled.
func Standardize(values [][]float64) [][]float64 {
	if len(values) == 0 {
		return nil
	}
	d := len(values[0])
	out := make([][]float64, len(values))
	for i := range out {
		out[i] = make([]float64, d)
	}
	col := make([]float64, len(values))
	for j := 0; j < d; j++ {
		for i, row := range values {
			col[i] = row[j]
		}
		mean := stat.Mean(col, nil)
		sd := math.Sqrt(stat.PopVariance(col, nil))
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		for i := range values {
			out[i][j] = (col[i] - mean) / sd
		}
	}
	return out
}

// Assignment is a side table of cluster labels keyed by original row index.
type Assignment struct {
	K         int
	Rows      []int
	Labels    []int
	Centroids [][]float64 // in standardized space
	Inertia   float64
}

// LabelOf returns the label for an original row index.
func (a *Assignment) LabelOf(row int) (int, bool) {
	for i, r := range a.Rows {
		if r == row {
			return a.Labels[i], true
		}
	}
	return 0, false
}

// Sizes returns the number of rows per label.
func (a *Assignment) Sizes() []int {
	out := make([]int, a.K)
	for _, l := range a.Labels {
		out[l]++
	}
	return out
}

// Run standardizes the features and partitions the rows with seeded k-means.
// The best of NInit restarts by inertia is kept.
func Run(f *Features, opt Options) (*Assignment, error) {
	if f == nil || len(f.Values) == 0 {
		return nil, ErrNotEligible
	}
	def := DefaultOptions()
	if opt.K <= 0 {
		opt.K = def.K
	}
	if opt.NInit <= 0 {
		opt.NInit = def.NInit
	}
	if opt.MaxIter <= 0 {
		opt.MaxIter = def.MaxIter
	}
	if opt.Tol <= 0 {
		opt.Tol = def.Tol
	}
	if len(f.Values) < opt.K {
		return nil, fmt.Errorf("k-means with k=%d on %d rows: %w", opt.K, len(f.Values), ErrTooFewRows)
	}
	x := Standardize(f.Values)
	rng := rand.New(rand.NewSource(opt.Seed))

	var best *Assignment
	for run := 0; run < opt.NInit; run++ {
		centroids := seedPlusPlus(x, opt.K, rng)
		labels, inertia := lloyd(x, centroids, opt.MaxIter, opt.Tol)
		if best == nil || inertia < best.Inertia {
			best = &Assignment{K: opt.K, Labels: labels, Centroids: centroids, Inertia: inertia}
		}
	}
	best.Rows = append([]int(nil), f.Rows...)
	return best, nil
}

// seedPlusPlus picks k initial centroids with D² weighting.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := x[rng.Intn(len(x))]
	centroids = append(centroids, append([]float64(nil), first...))
	d2 := make([]float64, len(x))
	for len(centroids) < k {
		var total float64
		for i, p := range x {
			d2[i] = nearest(p, centroids)
			total += d2[i]
		}
		idx := rng.Intn(len(x))
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range d2 {
				acc += d
				if acc >= target {
					idx = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), x[idx]...))
	}
	return centroids
}

// lloyd refines centroids in place and returns labels and inertia.
func lloyd(x, centroids [][]float64, maxIter int, tol float64) ([]int, float64) {
	k := len(centroids)
	d := len(x[0])
	labels := make([]int, len(x))
	for iter := 0; iter < maxIter; iter++ {
		for i, p := range x {
			labels[i] = closest(p, centroids)
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, p := range x {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		var shift float64
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			dist := floats.Distance(sums[c], centroids[c], 2)
			shift += dist * dist
			copy(centroids[c], sums[c])
		}
		if shift <= tol {
			break
		}
	}
	var inertia float64
	for i, p := range x {
		labels[i] = closest(p, centroids)
		dist := floats.Distance(p, centroids[labels[i]], 2)
		inertia += dist * dist
	}
	return labels, inertia
}

func closest(p []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centroids {
		if dist := floats.Distance(p, ctr, 2); dist < bestD {
			best, bestD = c, dist
		}
	}
	return best
}

func nearest(p []float64, centroids [][]float64) float64 {
	m := math.Inf(1)
	for _, ctr := range centroids {
		dist := floats.Distance(p, ctr, 2)
		if dist*dist < m {
			m = dist * dist
		}
	}
	return m
}
