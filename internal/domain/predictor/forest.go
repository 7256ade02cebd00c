package predictor

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// forest is a bagged ensemble of CART classification trees split on Gini
// impurity, each considering sqrt(features) candidates per split.
type forest struct {
	trees       []*tree
	nClasses    int
	importances []float64
}

type node struct {
	leaf      bool
	feature   int
	threshold float64
	left      int
	right     int
	dist      []float64
}

type tree struct {
	nodes []node
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	nClasses    int
	maxFeatures int
	rng         *rand.Rand
	nodes       []node
	importance  []float64
}

// fitForest grows nTrees trees on bootstrap samples of (x, y). Labels are
// class indices in [0, nClasses).
func fitForest(x [][]float64, y []int, nClasses, nTrees int, seed int64) *forest {
	nFeatures := len(x[0])
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rng := rand.New(rand.NewSource(seed))
	f := &forest{nClasses: nClasses, importances: make([]float64, nFeatures)}
	for t := 0; t < nTrees; t++ {
		sample := make([]int, len(x))
		for i := range sample {
			sample[i] = rng.Intn(len(x))
		}

		b := &treeBuilder{
			x:           x,
			y:           y,
			nClasses:    nClasses,
			maxFeatures: maxFeatures,
			rng:         rand.New(rand.NewSource(rng.Int63())),
			importance:  make([]float64, nFeatures),
		}
		b.grow(sample)
		f.trees = append(f.trees, &tree{nodes: b.nodes})

		if total := floats.Sum(b.importance); total > 0 {
			floats.AddScaled(f.importances, 1/total, b.importance)
		}
	}

	if total := floats.Sum(f.importances); total > 0 {
		floats.Scale(1/total, f.importances)
	}
	return f
}

// proba averages the leaf class distributions across trees.
func (f *forest) proba(row []float64) []float64 {
	out := make([]float64, f.nClasses)
	for _, t := range f.trees {
		floats.Add(out, t.leaf(row))
	}
	floats.Scale(1/float64(len(f.trees)), out)
	return out
}

func (f *forest) predict(row []float64) int {
	return floats.MaxIdx(f.proba(row))
}

func (t *tree) leaf(row []float64) []float64 {
	n := &t.nodes[0]
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = &t.nodes[n.left]
		} else {
			n = &t.nodes[n.right]
		}
	}
	return n.dist
}

// grow appends the subtree over samples and returns its root index.
func (b *treeBuilder) grow(samples []int) int {
	counts := b.classCounts(samples)
	id := len(b.nodes)
	b.nodes = append(b.nodes, node{})

	if len(samples) < 2 || isPure(counts) {
		b.nodes[id] = b.leafNode(counts, len(samples))
		return id
	}

	feature, threshold, decrease, ok := b.bestSplit(samples, counts)
	if !ok {
		b.nodes[id] = b.leafNode(counts, len(samples))
		return id
	}
	b.importance[feature] += decrease

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.grow(left)
	r := b.grow(right)
	b.nodes[id] = node{feature: feature, threshold: threshold, left: l, right: r}
	return id
}

// bestSplit searches a random subset of features first and falls back to the
// remaining ones only when the subset admits no split.
func (b *treeBuilder) bestSplit(samples []int, counts []float64) (int, float64, float64, bool) {
	nFeatures := len(b.x[0])
	order := b.rng.Perm(nFeatures)
	parent := gini(counts, float64(len(samples))) * float64(len(samples))

	bestFeature, bestThreshold, bestDecrease, found := -1, 0.0, 0.0, false
	for i, feature := range order {
		if i >= b.maxFeatures && found {
			break
		}
		threshold, impurity, ok := b.splitFeature(samples, feature)
		if !ok {
			continue
		}
		if decrease := parent - impurity; !found || decrease > bestDecrease {
			bestFeature, bestThreshold, bestDecrease, found = feature, threshold, decrease, true
		}
	}
	return bestFeature, bestThreshold, bestDecrease, found
}

// splitFeature returns the threshold minimising the weighted child impurity
// for one feature.
func (b *treeBuilder) splitFeature(samples []int, feature int) (float64, float64, bool) {
	sorted := append([]int(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool {
		return b.x[sorted[i]][feature] < b.x[sorted[j]][feature]
	})

	n := float64(len(sorted))
	right := b.classCounts(sorted)
	left := make([]float64, b.nClasses)

	bestThreshold, bestImpurity, found := 0.0, 0.0, false
	for i := 0; i < len(sorted)-1; i++ {
		c := b.y[sorted[i]]
		left[c]++
		right[c]--

		cur, next := b.x[sorted[i]][feature], b.x[sorted[i+1]][feature]
		if cur == next {
			continue
		}
		nl := float64(i + 1)
		nr := n - nl
		impurity := gini(left, nl)*nl + gini(right, nr)*nr
		if !found || impurity < bestImpurity {
			bestThreshold, bestImpurity, found = (cur+next)/2, impurity, true
		}
	}
	return bestThreshold, bestImpurity, found
}

func (b *treeBuilder) classCounts(samples []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	return counts
}

func (b *treeBuilder) leafNode(counts []float64, n int) node {
	dist := append([]float64(nil), counts...)
	if n > 0 {
		floats.Scale(1/float64(n), dist)
	}
	return node{leaf: true, dist: dist}
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
