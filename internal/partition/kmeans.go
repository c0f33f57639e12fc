package partition

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultMaxIter  = 300
	DefaultRestarts = 10
)

// Clusterer assigns each row of X to one of k clusters.
type Clusterer interface {
	Cluster(X *mat.Dense, k int, rng *rand.Rand) []int
	Name() string
}

// DefaultClusterer returns the multi-start k-means strategy.
func DefaultClusterer() Clusterer {
	return KMeans{Restarts: DefaultRestarts, MaxIter: DefaultMaxIter}
}

// KMeans runs Restarts independent k-means++ initialisations and keeps the
// labelling with the lowest inertia.
type KMeans struct {
	Restarts int
	MaxIter  int
}

func (km KMeans) Name() string { return "kmeans" }

func (km KMeans) Cluster(X *mat.Dense, k int, rng *rand.Rand) []int {
	restarts := km.Restarts
	if restarts < 1 {
		restarts = DefaultRestarts
	}
	single := Lloyd{MaxIter: km.MaxIter}

	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < restarts; r++ {
		labels, centers := single.run(X, k, rng)
		if in := inertia(X, labels, centers); in < bestInertia {
			best, bestInertia = labels, in
		}
	}
	return best
}

// Lloyd is a single k-means++ seeded run of Lloyd's algorithm. It is the
// fallback when a multi-start search is not wanted.
type Lloyd struct {
	MaxIter int
}

func (l Lloyd) Name() string { return "lloyd" }

func (l Lloyd) Cluster(X *mat.Dense, k int, rng *rand.Rand) []int {
	labels, _ := l.run(X, k, rng)
	return labels
}

func (l Lloyd) run(X *mat.Dense, k int, rng *rand.Rand) ([]int, [][]float64) {
	maxIter := l.MaxIter
	if maxIter < 1 {
		maxIter = DefaultMaxIter
	}
	n, _ := X.Dims()
	centers := seedPlusPlus(X, k, rng)

	labels := make([]int, n)
	next := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		for i := 0; i < n; i++ {
			next[i] = nearest(X.RawRowView(i), centers)
		}
		if equalLabels(next, labels) {
			break
		}
		copy(labels, next)
		updateCenters(X, labels, centers)
	}
	return labels, centers
}

// seedPlusPlus picks k initial centers, each new one sampled with probability
// proportional to its squared distance from the nearest chosen center.
func seedPlusPlus(X *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	n, _ := X.Dims()
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(X.RawRowView(rng.IntN(n))))

	d2 := make([]float64, n)
	for len(centers) < k {
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			d2[i] = math.Inf(1)
			for _, c := range centers {
				d := floats.Distance(row, c, 2)
				d2[i] = math.Min(d2[i], d*d)
			}
		}

		var idx int
		if floats.Sum(d2) > 0 {
			idx = int(distuv.NewCategorical(d2, rng).Rand())
		} else {
			idx = rng.IntN(n)
		}
		centers = append(centers, clone(X.RawRowView(idx)))
	}
	return centers
}

func nearest(row []float64, centers [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := floats.Distance(row, center, 2); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// updateCenters moves each center to the mean of its members. Empty clusters
// keep their previous center.
func updateCenters(X *mat.Dense, labels []int, centers [][]float64) {
	counts := make([]int, len(centers))
	sums := make([][]float64, len(centers))
	for c := range sums {
		sums[c] = make([]float64, len(centers[c]))
	}
	for i, label := range labels {
		floats.Add(sums[label], X.RawRowView(i))
		counts[label]++
	}
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		floats.ScaleTo(centers[c], 1/float64(counts[c]), sums[c])
	}
}

func inertia(X *mat.Dense, labels []int, centers [][]float64) float64 {
	var total float64
	for i, label := range labels {
		d := floats.Distance(X.RawRowView(i), centers[label], 2)
		total += d * d
	}
	return total
}

func equalLabels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clone(s []float64) []float64 {
	return append([]float64(nil), s...)
}
