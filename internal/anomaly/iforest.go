package anomaly

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
)

const (
	defaultTrees      = 100
	defaultSampleSize = 256
	eulerGamma        = 0.5772156649015329
)

// IsolationForest scores samples by how quickly random axis-aligned splits
// isolate them. Samples scoring above the (1 - contamination) empirical
// quantile are outliers.
type IsolationForest struct {
	Trees      int
	SampleSize int
}

// NewIsolationForest returns a forest of 100 trees over sub-samples of at
// most 256 points.
func NewIsolationForest() *IsolationForest {
	return &IsolationForest{Trees: defaultTrees, SampleSize: defaultSampleSize}
}

type node struct {
	leaf        bool
	size        int
	feature     int
	split       float64
	left, right *node
}

// FitAndLabel implements Detector.
func (f *IsolationForest) FitAndLabel(batch []Sample, p Params) ([]Label, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(batch) < p.MinSamples || len(batch) < 2 {
		return nil, ErrInsufficientData
	}

	scores := f.Scores(batch, p.Seed)

	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	threshold := stat.Quantile(1-p.Contamination, stat.Empirical, sorted, nil)

	labels := make([]Label, len(scores))
	for i, s := range scores {
		if s > threshold {
			labels[i] = Outlier
		}
	}
	return labels, nil
}

// Scores returns the anomaly score in (0, 1] for every sample. Scores near
// 1 are easy to isolate.
func (f *IsolationForest) Scores(batch []Sample, seed uint64) []float64 {
	x := sanitize(batch)
	n := len(x)
	if n == 0 {
		return nil
	}

	trees := f.Trees
	if trees <= 0 {
		trees = defaultTrees
	}
	psi := f.SampleSize
	if psi <= 0 {
		psi = defaultSampleSize
	}
	psi = min(psi, n)
	limit := int(math.Ceil(math.Log2(float64(max(psi, 2)))))

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // deterministic model, not security

	forest := make([]*node, trees)
	for t := range forest {
		idx := rng.Perm(n)[:psi]
		forest[t] = build(x, idx, 0, limit, rng)
	}

	norm := avgPathLength(psi)
	scores := make([]float64, n)
	for i, pt := range x {
		var total float64
		for _, root := range forest {
			total += pathLength(root, pt, 0)
		}
		mean := total / float64(trees)
		if norm > 0 {
			scores[i] = math.Pow(2, -mean/norm)
		} else {
			scores[i] = 0.5
		}
	}
	return scores
}

func build(x [][2]float64, idx []int, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(idx) <= 1 {
		return &node{leaf: true, size: len(idx)}
	}

	// try a random feature first, fall back to the other if it is constant
	first := rng.IntN(2)
	for k := range 2 {
		feat := (first + k) % 2
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			lo = min(lo, x[i][feat])
			hi = max(hi, x[i][feat])
		}
		if lo == hi {
			continue
		}
		split := lo + rng.Float64()*(hi-lo)

		var left, right []int
		for _, i := range idx {
			if x[i][feat] < split {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		return &node{
			feature: feat,
			split:   split,
			left:    build(x, left, depth+1, limit, rng),
			right:   build(x, right, depth+1, limit, rng),
		}
	}
	return &node{leaf: true, size: len(idx)}
}

func pathLength(n *node, pt [2]float64, depth int) float64 {
	for !n.leaf {
		if pt[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + avgPathLength(n.size)
}

// avgPathLength is the mean unsuccessful-search path length in a binary
// search tree of n nodes, used to normalise depths.
func avgPathLength(n int) float64 {
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
