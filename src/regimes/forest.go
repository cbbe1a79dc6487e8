package regimes

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

// ForestParams configures a RandomForest. Zero values for MaxDepth,
// MaxFeatures and Workers mean unbounded, sqrt(features) and GOMAXPROCS.
type ForestParams struct {
	NumTrees       int
	MinSamplesLeaf int
	MaxDepth       int
	MaxFeatures    int
	Seed           int64
	Workers        int
}

func DefaultForestParams() ForestParams {
	return ForestParams{
		NumTrees:       500,
		MinSamplesLeaf: 3,
		Seed:           42,
	}
}

// RandomForest is a bagged ensemble of CART trees split on Gini impurity.
type RandomForest struct {
	Params ForestParams
}

func NewRandomForest(params ForestParams) *RandomForest {
	return &RandomForest{Params: params}
}

// Fit trains every tree on its own bootstrap sample. Trees are seeded from the
// forest seed and their position, so the fitted forest does not depend on
// how many workers trained it.
func (rf *RandomForest) Fit(X [][]float64, y []datamodels.Regime) (Predictor, error) {
	p := rf.Params
	if p.NumTrees <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "forest needs at least one tree, got %d", p.NumTrees)
	}
	if p.MinSamplesLeaf <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "min samples per leaf must be positive, got %d", p.MinSamplesLeaf)
	}
	if len(X) != len(y) {
		return nil, errors.Wrapf(errors.ErrLengthMismatch, "%d feature rows for %d labels", len(X), len(y))
	}
	if len(X) == 0 {
		return nil, errors.Wrap(errors.ErrInsufficientData, "cannot fit a forest on zero rows")
	}
	numFeatures := len(X[0])
	for i, row := range X {
		if len(row) != numFeatures {
			return nil, errors.Wrapf(errors.ErrLengthMismatch, "row %d has %d features, expected %d", i, len(row), numFeatures)
		}
	}

	classes := datamodels.SortedUniqueRegimes(y)
	classOf := make(map[datamodels.Regime]int, len(classes))
	for i, c := range classes {
		classOf[c] = i
	}
	targets := make([]int, len(y))
	for i, label := range y {
		targets[i] = classOf[label]
	}

	maxFeatures := p.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > numFeatures {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(numFeatures)))))
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	builder := treeBuilder{
		X:              X,
		targets:        targets,
		numClasses:     len(classes),
		maxFeatures:    maxFeatures,
		minSamplesLeaf: p.MinSamplesLeaf,
		maxDepth:       p.MaxDepth,
	}

	trees := make([]*treeNode, p.NumTrees)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(treeSeed(p.Seed, i)))
			trees[i] = builder.build(rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("Fitted random forest", "trees", len(trees), "rows", len(X), "features", numFeatures, "max_features", maxFeatures, "workers", workers)
	return &forestModel{trees: trees, classes: classes, numFeatures: numFeatures}, nil
}

// treeSeed spreads the forest seed over the trees (splitmix64 step).
func treeSeed(seed int64, tree int) int64 {
	z := uint64(seed) + uint64(tree+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

type forestModel struct {
	trees       []*treeNode
	classes     []datamodels.Regime
	numFeatures int
}

// Predict returns the majority vote of the trees. Ties go to the label that
// sorts first.
func (m *forestModel) Predict(x []float64) datamodels.Regime {
	votes := make([]int, len(m.classes))
	for _, tree := range m.trees {
		votes[tree.predict(x)]++
	}
	best := 0
	for c := 1; c < len(votes); c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return m.classes[best]
}

type treeNode struct {
	leaf      bool
	class     int
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x []float64) int {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.class
}

type treeBuilder struct {
	X              [][]float64
	targets        []int
	numClasses     int
	maxFeatures    int
	minSamplesLeaf int
	maxDepth       int
}

func (b treeBuilder) build(rng *rand.Rand) *treeNode {
	n := len(b.X)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(n)
	}
	return b.grow(rng, sample, 0)
}

func (b treeBuilder) grow(rng *rand.Rand, rows []int, depth int) *treeNode {
	counts := b.classCounts(rows)
	majority := argmax(counts)
	if counts[majority] == len(rows) || len(rows) < 2*b.minSamplesLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return &treeNode{leaf: true, class: majority}
	}

	feature, threshold, ok := b.bestSplit(rng, rows, counts)
	if !ok {
		return &treeNode{leaf: true, class: majority}
	}
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if b.X[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(rng, left, depth+1),
		right:     b.grow(rng, right, depth+1),
	}
}

// bestSplit scans a random subset of features for the threshold with the lowest
// weighted Gini impurity that leaves at least minSamplesLeaf rows on each side.
func (b treeBuilder) bestSplit(rng *rand.Rand, rows []int, counts []int) (int, float64, bool) {
	numFeatures := len(b.X[0])
	candidates := rng.Perm(numFeatures)[:b.maxFeatures]

	bestScore := gini(counts, len(rows))
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := append([]int(nil), rows...)
	leftCounts := make([]int, b.numClasses)
	rightCounts := make([]int, b.numClasses)
	for _, f := range candidates {
		sort.SliceStable(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })
		for c := range leftCounts {
			leftCounts[c] = 0
			rightCounts[c] = counts[c]
		}
		for i := 0; i < len(sorted)-1; i++ {
			cls := b.targets[sorted[i]]
			leftCounts[cls]++
			rightCounts[cls]--
			nLeft := i + 1
			nRight := len(sorted) - nLeft
			lo, hi := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if lo == hi || nLeft < b.minSamplesLeaf || nRight < b.minSamplesLeaf {
				continue
			}
			score := (float64(nLeft)*gini(leftCounts, nLeft) + float64(nRight)*gini(rightCounts, nRight)) / float64(len(sorted))
			if score < bestScore-1e-12 {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (b treeBuilder) classCounts(rows []int) []int {
	counts := make([]int, b.numClasses)
	for _, r := range rows {
		counts[b.targets[r]]++
	}
	return counts
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		sum += p * p
	}
	return 1 - sum
}

func argmax(vals []int) int {
	best := 0
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[best] {
			best = i
		}
	}
	return best
}
