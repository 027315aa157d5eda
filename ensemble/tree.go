// Package ensemble implements the random-forest classification pipeline:
// bootstrap-resampled CART trees with per-split random feature subsets,
// out-of-bag error tracking, Gini feature importance and a tuning search
// over the split-variable count.
package ensemble

import (
	"math/rand/v2"
	"sort"
)

// treeParams are the per-tree growing controls shared by the whole forest.
type treeParams struct {
	maxFeatures    int // candidate features per split
	minSamplesLeaf int
	maxDepth       int // 0 means no depth limit
	numClasses     int
	isCat          []bool // per feature: categorical level codes vs numeric values
}

// treeNode is one node of a fitted classification tree.
type treeNode struct {
	isLeaf bool

	// Split definition. Numeric features route x <= threshold left;
	// categorical features route x == threshold left (one level vs rest).
	feature   int
	threshold float64
	isCat     bool

	left  *treeNode
	right *treeNode

	// Leaf payload: majority class index.
	pred int
}

// decisionTree is a single CART classifier inside the ensemble.
type decisionTree struct {
	root *treeNode
}

// splitCandidate is the best split found for one feature.
type splitCandidate struct {
	feature   int
	threshold float64
	isCat     bool
	gain      float64
	leftIdx   []int
	rightIdx  []int
}

// growTree fits a tree on the bootstrap sample given by idx. Randomness
// (feature subsets) is drawn exclusively from rng, so a tree is a pure
// function of (X, y, idx, params, rng state). Gini importance per feature
// is accumulated into imp, weighted by node size over the sample size.
func growTree(X [][]float64, y []int, idx []int, params treeParams, rng *rand.Rand, imp []float64) *decisionTree {
	t := &decisionTree{}
	t.root = buildNode(X, y, idx, 0, params, rng, imp, len(idx))
	return t
}

func buildNode(X [][]float64, y []int, idx []int, depth int, params treeParams, rng *rand.Rand, imp []float64, sampleSize int) *treeNode {
	counts := classCounts(y, idx, params.numClasses)
	if len(idx) < 2*params.minSamplesLeaf ||
		(params.maxDepth > 0 && depth >= params.maxDepth) ||
		isPure(counts) {
		return leafNode(counts)
	}

	best := findBestSplit(X, y, idx, counts, params, rng)
	if best == nil ||
		len(best.leftIdx) < params.minSamplesLeaf ||
		len(best.rightIdx) < params.minSamplesLeaf {
		return leafNode(counts)
	}

	// Mean decrease in impurity, weighted by the fraction of the bootstrap
	// sample reaching this node.
	imp[best.feature] += best.gain * float64(len(idx)) / float64(sampleSize)

	node := &treeNode{
		feature:   best.feature,
		threshold: best.threshold,
		isCat:     best.isCat,
	}
	node.left = buildNode(X, y, best.leftIdx, depth+1, params, rng, imp, sampleSize)
	node.right = buildNode(X, y, best.rightIdx, depth+1, params, rng, imp, sampleSize)
	return node
}

func leafNode(counts []int) *treeNode {
	return &treeNode{isLeaf: true, pred: argmaxCount(counts)}
}

// findBestSplit draws an independent random subset of maxFeatures features
// and returns the impurity-minimizing split among them, or nil when no
// feature admits a split with positive gain.
func findBestSplit(X [][]float64, y []int, idx []int, counts []int, params treeParams, rng *rand.Rand) *splitCandidate {
	numFeatures := len(params.isCat)
	subset := sampleFeatures(numFeatures, params.maxFeatures, rng)

	parentImpurity := gini(counts, len(idx))

	var best *splitCandidate
	for _, f := range subset {
		var cand *splitCandidate
		if params.isCat[f] {
			cand = bestCategoricalSplit(X, y, idx, f, parentImpurity, params.numClasses)
		} else {
			cand = bestNumericSplit(X, y, idx, f, parentImpurity, params.numClasses)
		}
		if cand == nil {
			continue
		}
		if best == nil || cand.gain > best.gain ||
			(cand.gain == best.gain && cand.feature < best.feature) {
			best = cand
		}
	}
	if best != nil && best.gain <= 0 {
		return nil
	}
	return best
}

// bestNumericSplit scans midpoints between consecutive distinct values.
func bestNumericSplit(X [][]float64, y []int, idx []int, feature int, parentImpurity float64, numClasses int) *splitCandidate {
	ordered := make([]int, len(idx))
	copy(ordered, idx)
	sort.Slice(ordered, func(a, b int) bool {
		va, vb := X[ordered[a]][feature], X[ordered[b]][feature]
		if va != vb {
			return va < vb
		}
		return ordered[a] < ordered[b]
	})

	total := len(ordered)
	leftCounts := make([]int, numClasses)
	rightCounts := classCounts(y, ordered, numClasses)

	var best *splitCandidate
	for i := 0; i < total-1; i++ {
		c := y[ordered[i]]
		leftCounts[c]++
		rightCounts[c]--

		v, next := X[ordered[i]][feature], X[ordered[i+1]][feature]
		if v == next {
			continue
		}

		nLeft := i + 1
		nRight := total - nLeft
		childImpurity := (float64(nLeft)*gini(leftCounts, nLeft) +
			float64(nRight)*gini(rightCounts, nRight)) / float64(total)
		gain := parentImpurity - childImpurity

		if best == nil || gain > best.gain {
			best = &splitCandidate{
				feature:   feature,
				threshold: (v + next) / 2,
				gain:      gain,
			}
		}
	}
	if best == nil {
		return nil
	}
	best.leftIdx, best.rightIdx = partitionNumeric(X, idx, feature, best.threshold)
	return best
}

// bestCategoricalSplit tries each observed level as a one-vs-rest split.
func bestCategoricalSplit(X [][]float64, y []int, idx []int, feature int, parentImpurity float64, numClasses int) *splitCandidate {
	// Class counts per observed level code.
	levelCounts := make(map[float64][]int)
	for _, i := range idx {
		v := X[i][feature]
		if levelCounts[v] == nil {
			levelCounts[v] = make([]int, numClasses)
		}
		levelCounts[v][y[i]]++
	}
	if len(levelCounts) < 2 {
		return nil
	}

	totalCounts := classCounts(y, idx, numClasses)
	total := len(idx)

	var best *splitCandidate
	for level, lc := range levelCounts {
		nLeft := sumCounts(lc)
		nRight := total - nLeft
		if nLeft == 0 || nRight == 0 {
			continue
		}
		rightCounts := make([]int, numClasses)
		for c := range rightCounts {
			rightCounts[c] = totalCounts[c] - lc[c]
		}
		childImpurity := (float64(nLeft)*gini(lc, nLeft) +
			float64(nRight)*gini(rightCounts, nRight)) / float64(total)
		gain := parentImpurity - childImpurity

		if best == nil || gain > best.gain ||
			(gain == best.gain && level < best.threshold) {
			best = &splitCandidate{
				feature:   feature,
				threshold: level,
				isCat:     true,
				gain:      gain,
			}
		}
	}
	if best == nil {
		return nil
	}
	best.leftIdx, best.rightIdx = partitionCategorical(X, idx, feature, best.threshold)
	return best
}

// predictRow routes one encoded row to a leaf and returns the class index.
func (t *decisionTree) predictRow(row []float64) int {
	node := t.root
	for !node.isLeaf {
		v := row[node.feature]
		var goLeft bool
		if node.isCat {
			goLeft = v == node.threshold
		} else {
			goLeft = v <= node.threshold
		}
		if goLeft {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.pred
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func classCounts(y []int, idx []int, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, i := range idx {
		counts[y[i]]++
	}
	return counts
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		impurity -= p * p
	}
	return impurity
}

func argmaxCount(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

func sumCounts(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// sampleFeatures draws k distinct feature indices via a partial
// Fisher-Yates shuffle, independently for every split.
func sampleFeatures(numFeatures, k int, rng *rand.Rand) []int {
	if k >= numFeatures {
		all := make([]int, numFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	pool := make([]int, numFeatures)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(numFeatures-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

func partitionNumeric(X [][]float64, idx []int, feature int, threshold float64) (left, right []int) {
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func partitionCategorical(X [][]float64, idx []int, feature int, level float64) (left, right []int) {
	for _, i := range idx {
		if X[i][feature] == level {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}
