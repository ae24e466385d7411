package evaluation

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

const (
	kmeansRestarts      = 10
	kmeansMaxIterations = 300
	kmeansTolerance     = 1e-9
)

// Grouper clusters question types into performance tiers by their mean
// accuracy over a dataset.
type Grouper struct {
	cfg config.EvaluationConfig
}

func NewGrouper(cfg config.EvaluationConfig) *Grouper {
	return &Grouper{cfg: cfg}
}

// Group computes every question type's mean accuracy over rows, scales it to
// 0..PerTypeMax and runs a seeded k-means over those scores. The same rows and
// config always produce the same partition. With fewer distinct scores than
// the configured cluster count, one tier per distinct score is used.
func (g *Grouper) Group(rows []models.ReferenceRecord) models.ClusterAssignment {
	averages := g.averages(rows)
	if len(averages) == 0 {
		return models.ClusterAssignment{}
	}

	values := make([]float64, len(averages))
	for i, avg := range averages {
		values[i] = avg.MeanScore
	}

	labels, centers := kmeans1D(values, g.cfg.ClusterCount(), g.cfg.ClusterSeed())
	for i := range averages {
		averages[i].Tier = labels[i]
	}

	return models.ClusterAssignment{Averages: averages, Centers: centers}
}

func (g *Grouper) averages(rows []models.ReferenceRecord) []models.TypeAverage {
	sums := make(map[models.QuestionType]float64)
	samples := make(map[models.QuestionType]int)
	for _, row := range rows {
		sums[row.QuestionType] += row.Accuracy
		samples[row.QuestionType]++
	}

	types := make([]models.QuestionType, 0, len(samples))
	for t := range samples {
		types = append(types, t)
	}
	sortByConfig(g.cfg, types)

	scale := float64(g.cfg.PerTypeMax())
	averages := make([]models.TypeAverage, 0, len(types))
	for _, t := range types {
		averages = append(averages, models.TypeAverage{
			QuestionType: t,
			MeanScore:    sums[t] / float64(samples[t]) * scale,
			Samples:      samples[t],
		})
	}
	return averages
}

// kmeans1D returns a cluster label per value and the cluster centers. It runs
// several k-means++ seeded restarts from one PCG stream and keeps the run with
// the lowest inertia. The first run is always kept so a non-finite inertia
// still yields labels.
func kmeans1D(values []float64, k int, seed uint64) ([]int, []float64) {
	k = min(k, countDistinct(values))
	if k <= 1 {
		return make([]int, len(values)), []float64{mean(values)}
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	var (
		bestLabels  []int
		bestCenters []float64
		bestInertia = math.Inf(1)
	)
	for r := range kmeansRestarts {
		centers := seedCenters(values, k, rng)
		labels, inertia := lloyd(values, centers)
		if r == 0 || inertia < bestInertia {
			bestLabels, bestCenters, bestInertia = labels, centers, inertia
		}
	}
	return bestLabels, bestCenters
}

// seedCenters picks initial centers with k-means++: each next center is drawn
// with probability proportional to its squared distance from the nearest
// center chosen so far.
func seedCenters(values []float64, k int, rng *rand.Rand) []float64 {
	centers := make([]float64, 0, k)
	centers = append(centers, values[rng.IntN(len(values))])

	dist := make([]float64, len(values))
	for len(centers) < k {
		var total float64
		for i, v := range values {
			_, d := nearest(v, centers)
			dist[i] = d
			total += d
		}

		target := rng.Float64() * total
		chosen := lastPositive(dist)
		for i, d := range dist {
			if d == 0 {
				continue
			}
			target -= d
			if target < 0 {
				chosen = i
				break
			}
		}
		centers = append(centers, values[chosen])
	}
	return centers
}

// lastPositive returns the last index with a non-zero distance, so rounding
// left in target never re-picks an existing center.
func lastPositive(dist []float64) int {
	for i := len(dist) - 1; i >= 0; i-- {
		if dist[i] > 0 {
			return i
		}
	}
	return len(dist) - 1
}

// lloyd refines centers in place and returns the final labels and inertia.
func lloyd(values []float64, centers []float64) ([]int, float64) {
	labels := make([]int, len(values))
	sums := make([]float64, len(centers))
	counts := make([]int, len(centers))

	for range kmeansMaxIterations {
		clear(sums)
		clear(counts)
		for i, v := range values {
			c, _ := nearest(v, centers)
			labels[i] = c
			sums[c] += v
			counts[c]++
		}

		var shift float64
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			next := sums[c] / float64(counts[c])
			shift = max(shift, math.Abs(next-centers[c]))
			centers[c] = next
		}
		if shift <= kmeansTolerance {
			break
		}
	}

	var inertia float64
	for i, v := range values {
		c, d := nearest(v, centers)
		labels[i] = c
		inertia += d
	}
	return labels, inertia
}

// nearest returns the index of the closest center and the squared distance to
// it. Ties go to the lower index.
func nearest(v float64, centers []float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		d := (v - center) * (v - center)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func countDistinct(values []float64) int {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return len(slices.Compact(sorted))
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
