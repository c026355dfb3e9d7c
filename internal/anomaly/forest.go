// Package anomaly flags outlying heart-rate readings with an isolation
// forest.
//
// Readings that are easy to isolate by random splits have short average
// path lengths and therefore high scores. The top Contamination share of
// scores is classified as anomalous. Training always uses a fixed seed, so
// the same history yields the same classification on every refresh.
package anomaly

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/xtxerr/cardiowatch/config"
)

// eulerGamma is the Euler-Mascheroni constant.
const eulerGamma = 0.5772156649015329

// Config holds detector configuration.
type Config struct {
	// Trees is the number of isolation trees.
	Trees int

	// Subsample caps the number of values each tree is built from.
	Subsample int

	// Contamination is the expected share of anomalies, in (0, 0.5].
	Contamination float64

	// Seed makes training deterministic.
	Seed uint64

	// MinSamples is the smallest history that is analysed at all.
	MinSamples int
}

// DefaultConfig returns default detector configuration.
func DefaultConfig() Config {
	return Config{
		Trees:         config.DefaultForestTrees,
		Subsample:     config.DefaultForestSubsample,
		Contamination: config.DefaultContamination,
		Seed:          config.DefaultForestSeed,
		MinSamples:    config.DefaultMinSamples,
	}
}

// =============================================================================
// Forest
// =============================================================================

type node struct {
	split       float64
	left, right *node
	size        int // leaf only
}

func (n *node) leaf() bool { return n.left == nil }

// Forest is a trained isolation forest over one feature.
type Forest struct {
	trees []*node
	psi   int
}

// Fit trains a forest on values.
func Fit(values []float64, cfg Config) *Forest {
	psi := min(cfg.Subsample, len(values))
	if psi < 1 {
		return &Forest{}
	}
	limit := int(math.Ceil(math.Log2(float64(max(psi, 2)))))
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	f := &Forest{trees: make([]*node, cfg.Trees), psi: psi}
	idx := make([]int, len(values))
	sample := make([]float64, psi)
	for t := range f.trees {
		for i := range idx {
			idx[i] = i
		}
		// Partial Fisher-Yates: the first psi positions are the sample.
		for i := 0; i < psi; i++ {
			j := i + rng.IntN(len(idx)-i)
			idx[i], idx[j] = idx[j], idx[i]
			sample[i] = values[idx[i]]
		}
		f.trees[t] = build(slices.Clone(sample), 0, limit, rng)
	}
	return f
}

func build(xs []float64, depth, limit int, rng *rand.Rand) *node {
	lo, hi := slices.Min(xs), slices.Max(xs)
	if depth >= limit || len(xs) <= 1 || lo == hi {
		return &node{size: len(xs)}
	}

	split := lo + rng.Float64()*(hi-lo)
	// Keep both sides non-empty.
	if split <= lo {
		split = math.Nextafter(lo, hi)
	}

	var left, right []float64
	for _, x := range xs {
		if x < split {
			left = append(left, x)
		} else {
			right = append(right, x)
		}
	}
	return &node{
		split: split,
		left:  build(left, depth+1, limit, rng),
		right: build(right, depth+1, limit, rng),
	}
}

func pathLength(n *node, x float64, depth int) float64 {
	for !n.leaf() {
		if x < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePath(n.size)
}

// averagePath is the mean path length of an unsuccessful search in a
// binary search tree of n nodes.
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

// Score returns the anomaly score of x in (0, 1]. Scores close to 1 are
// anomalous, scores well below 0.5 are normal.
func (f *Forest) Score(x float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, x, 0)
	}
	mean := total / float64(len(f.trees))
	c := averagePath(f.psi)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}
