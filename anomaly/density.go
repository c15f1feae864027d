package anomaly

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
)

// Isolation forest parameters. Together with the PCG source they fix the
// output of FindOutliersDensity for a given input.
const (
	DefaultSeed       uint64 = 42
	DefaultTrees             = 100
	DefaultMaxSamples        = 256
)

// eulerGamma is the Euler-Mascheroni constant used by the average path length.
const eulerGamma = 0.5772156649

// DensityOptions configures the isolation forest.
type DensityOptions struct {
	Contamination float64
	Seed          uint64
	Trees         int
	MaxSamples    int
}

// DefaultDensityOptions returns the options FindOutliersDensity uses.
func DefaultDensityOptions(contamination float64) DensityOptions {
	return DensityOptions{
		Contamination: contamination,
		Seed:          DefaultSeed,
		Trees:         DefaultTrees,
		MaxSamples:    DefaultMaxSamples,
	}
}

// FindOutliersDensity flags rows that an isolation forest over column scores
// as anomalous. Roughly contamination of the usable rows are flagged: those
// whose anomaly score is strictly above the (1-contamination) percentile of
// all scores.
//
// The forest has DefaultTrees trees, each grown on min(DefaultMaxSamples, n)
// values sampled without replacement, with a PCG source seeded by DefaultSeed.
// Nulls are excluded. Fewer than two values, or identical values, flag nothing.
func FindOutliersDensity(t *model.Table, column string, contamination float64) (*model.Table, error) {
	return FindOutliersDensityWithOptions(t, column, DefaultDensityOptions(contamination))
}

// FindOutliersDensityWithOptions is FindOutliersDensity with explicit forest parameters.
func FindOutliersDensityWithOptions(t *model.Table, column string, opts DensityOptions) (*model.Table, error) {
	if t == nil {
		return nil, reconerr.InvalidArgument("table", "table is nil")
	}
	if math.IsNaN(opts.Contamination) || opts.Contamination <= 0 || opts.Contamination > 0.5 {
		return nil, reconerr.InvalidArgument("contamination", "must be in (0, 0.5], got %v", opts.Contamination)
	}
	if opts.Trees <= 0 {
		return nil, reconerr.InvalidArgument("trees", "must be positive, got %d", opts.Trees)
	}
	if opts.MaxSamples < 2 {
		return nil, reconerr.InvalidArgument("max_samples", "must be at least 2, got %d", opts.MaxSamples)
	}
	if t.Len() == 0 {
		return t.Empty(), nil
	}
	if err := numericColumn(t, column); err != nil {
		return nil, err
	}

	values, rows := finiteValues(t, column)
	if len(values) < 2 || constant(values) {
		return t.Empty(), nil
	}

	scores := newForest(values, opts).scores(values)
	threshold := percentile(scores, 100*(1-opts.Contamination))

	var flagged []int
	for i, s := range scores {
		if s > threshold {
			flagged = append(flagged, rows[i])
		}
	}
	return t.Subset(flagged), nil
}

type node struct {
	split       float64
	size        int
	left, right *node
}

func (n *node) leaf() bool { return n.left == nil }

type forest struct {
	trees   []*node
	samples int
}

func newForest(values []float64, opts DensityOptions) *forest {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	psi := opts.MaxSamples
	if psi > len(values) {
		psi = len(values)
	}
	limit := int(math.Ceil(math.Log2(float64(psi))))

	f := &forest{trees: make([]*node, opts.Trees), samples: psi}
	buf := make([]float64, psi)
	for i := range f.trees {
		perm := rng.Perm(len(values))
		for j := 0; j < psi; j++ {
			buf[j] = values[perm[j]]
		}
		f.trees[i] = grow(rng, append([]float64(nil), buf...), 0, limit)
	}
	return f
}

// grow builds an isolation tree by splitting at a uniform point between the
// smallest and largest value of the node until the height limit is reached or
// the node cannot be split.
func grow(rng *rand.Rand, sample []float64, depth, limit int) *node {
	n := &node{size: len(sample)}
	if depth >= limit || len(sample) <= 1 {
		return n
	}
	lo, hi := sample[0], sample[0]
	for _, v := range sample[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return n
	}
	n.split = lo + rng.Float64()*(hi-lo)

	var left, right []float64
	for _, v := range sample {
		if v < n.split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	n.left = grow(rng, left, depth+1, limit)
	n.right = grow(rng, right, depth+1, limit)
	return n
}

// pathLength is the depth at which x lands plus the expected remaining depth
// of the leaf it lands in.
func pathLength(n *node, x float64) float64 {
	depth := 0
	for !n.leaf() {
		if x < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// scores returns the anomaly score 2^(-E[h(x)]/c(psi)) of every value. Higher
// means more anomalous.
func (f *forest) scores(values []float64) []float64 {
	norm := averagePathLength(f.samples)
	out := make([]float64, len(values))
	for i, x := range values {
		var total float64
		for _, tree := range f.trees {
			total += pathLength(tree, x)
		}
		mean := total / float64(len(f.trees))
		out[i] = math.Pow(2, -mean/norm)
	}
	return out
}

// averagePathLength is c(n), the average path length of an unsuccessful
// search in a binary search tree of n elements.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// percentile returns the q-th percentile of values with linear interpolation
// between closest ranks.
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
