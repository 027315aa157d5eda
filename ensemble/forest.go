package ensemble

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/beanlab/cupping/core/model"
	"github.com/beanlab/cupping/core/parallel"
	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
	"github.com/beanlab/cupping/pkg/log"
)

// RandomForestClassifier is a bagged ensemble of CART classification trees.
// Each tree trains on a bootstrap resample of the training table drawn from
// its own PCG sub-source, and every split considers an independent random
// subset of the input columns. The class level set and the categorical
// input vocabularies are frozen at fit time; predictions on labels outside
// those sets fail instead of extending them.
type RandomForestClassifier struct {
	model.BaseEstimator

	numTrees       int
	maxFeatures    int // 0 selects round(sqrt(#inputs)) at fit time
	minSamplesLeaf int
	maxDepth       int
	seed           uint64

	// Frozen at fit time.
	output      string
	inputs      []string
	classes     []string
	inputLevels [][]string // per input: categorical levels, nil for numeric
	isCat       []bool

	trees      []*decisionTree
	inBag      [][]bool // per tree, per training row
	trainX     [][]float64
	trainY     []int
	oobCurve   []float64
	importance []float64
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithTrees sets the ensemble size.
func WithTrees(n int) Option {
	return func(rf *RandomForestClassifier) { rf.numTrees = n }
}

// WithMaxFeatures sets the number of candidate input columns considered at
// each split. Zero selects round(sqrt(#inputs)) at fit time.
func WithMaxFeatures(m int) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = m }
}

// WithMinSamplesLeaf sets the minimum rows required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxDepth limits tree depth; zero means unlimited.
func WithMaxDepth(d int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = d }
}

// WithSeed sets the root seed. Every stochastic operation derives from it,
// so fits with the same seed produce identical predictions.
func WithSeed(seed uint64) Option {
	return func(rf *RandomForestClassifier) { rf.seed = seed }
}

// NewRandomForestClassifier creates a forest with the standard defaults:
// 500 trees, sqrt(#inputs) split variables, leaves of at least one row.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		numTrees:       500,
		minSamplesLeaf: 1,
		seed:           1,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// MaxFeatures returns the effective split-variable count. Before Fit it
// reports the configured value, which may be zero (auto).
func (rf *RandomForestClassifier) MaxFeatures() int {
	return rf.maxFeatures
}

// Classes returns the frozen class level set.
func (rf *RandomForestClassifier) Classes() []string {
	return append([]string(nil), rf.classes...)
}

// DefaultMaxFeatures is the conventional split-variable count for
// classification, round(sqrt(p)) clamped to at least 1.
func DefaultMaxFeatures(numInputs int) int {
	m := int(math.Round(math.Sqrt(float64(numInputs))))
	if m < 1 {
		m = 1
	}
	return m
}

// Fit trains the ensemble on the training table.
//
// The output column must be categorical with at least two observed class
// labels; every input column must exist and be numeric or categorical.
func (rf *RandomForestClassifier) Fit(t *dataset.Table, output string, inputs []string) error {
	logger := log.With("ensemble")

	outCol, err := t.Column(output)
	if err != nil {
		return err
	}
	if outCol.Kind != dataset.Categorical {
		return errors.NewColumnTypeError("RandomForestClassifier.Fit", output, "categorical", outCol.Kind.String())
	}
	if len(inputs) == 0 {
		return errors.NewConfigError("RandomForestClassifier.Fit", "inputs", "must not be empty", 0)
	}

	n := t.NumRows()
	if n == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForestClassifier.Fit")
	}

	// Freeze class levels and require at least two present.
	present := make(map[int]bool)
	for i := 0; i < n; i++ {
		if outCol.IsMissing(i) {
			return errors.NewColumnTypeError("RandomForestClassifier.Fit", output, "non-missing label", "missing value")
		}
		present[outCol.Codes[i]] = true
	}
	if len(present) < 2 {
		return errors.NewConfigError("RandomForestClassifier.Fit", output,
			"classification needs at least 2 class labels present", len(present))
	}

	X, isCat, levels, err := encodeInputs(t, inputs, nil, nil, "RandomForestClassifier.Fit")
	if err != nil {
		return err
	}

	y := make([]int, n)
	copy(y, outCol.Codes)

	rf.output = output
	rf.inputs = append([]string(nil), inputs...)
	rf.classes = append([]string(nil), outCol.Levels...)
	rf.inputLevels = levels
	rf.isCat = isCat
	rf.trainX = X
	rf.trainY = y

	if rf.maxFeatures <= 0 {
		rf.maxFeatures = DefaultMaxFeatures(len(inputs))
	}
	if rf.maxFeatures > len(inputs) {
		rf.maxFeatures = len(inputs)
	}

	params := treeParams{
		maxFeatures:    rf.maxFeatures,
		minSamplesLeaf: rf.minSamplesLeaf,
		maxDepth:       rf.maxDepth,
		numClasses:     len(rf.classes),
		isCat:          isCat,
	}

	logger.Debug("fitting random forest",
		slog.String(log.ModelNameKey, "RandomForestClassifier"),
		slog.String(log.OperationKey, "fit"),
		slog.Int(log.SamplesKey, n),
		slog.Int(log.FeaturesKey, len(inputs)),
		slog.Int(log.TreesKey, rf.numTrees),
		slog.Int(log.MaxFeaturesKey, rf.maxFeatures),
		slog.Uint64(log.SeedKey, rf.seed))

	rf.trees = make([]*decisionTree, rf.numTrees)
	rf.inBag = make([][]bool, rf.numTrees)
	importances := make([][]float64, rf.numTrees)

	// Each tree owns an independently seeded sub-source, so the fit is
	// bit-reproducible regardless of how the work is scheduled.
	parallel.Parallelize(rf.numTrees, func(start, end int) {
		for ti := start; ti < end; ti++ {
			treeSeed := rf.seed + uint64(ti)
			rng := rand.New(rand.NewPCG(treeSeed, treeSeed))

			sample := make([]int, n)
			inBag := make([]bool, n)
			for i := 0; i < n; i++ {
				j := rng.IntN(n)
				sample[i] = j
				inBag[j] = true
			}

			imp := make([]float64, len(inputs))
			rf.trees[ti] = growTree(X, y, sample, params, rng, imp)
			rf.inBag[ti] = inBag
			importances[ti] = imp
		}
	})

	rf.importance = averageImportance(importances)
	rf.oobCurve = rf.computeOOBCurve()
	rf.SetFitted()

	logger.Info("random forest fitted",
		slog.String(log.ModelNameKey, "RandomForestClassifier"),
		slog.Int(log.TreesKey, rf.numTrees),
		slog.Float64(log.OOBErrorKey, rf.OOBError()))
	return nil
}

// Predict returns the majority-vote label for each row of the table. Ties
// break toward the lowest class index so repeated runs agree exactly.
func (rf *RandomForestClassifier) Predict(t *dataset.Table) ([]string, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "Predict")
	}

	X, _, _, err := encodeInputs(t, rf.inputs, rf.inputLevels, rf.isCat, "RandomForestClassifier.Predict")
	if err != nil {
		return nil, err
	}

	n := len(X)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		votes := make([]int, len(rf.classes))
		for _, tree := range rf.trees {
			votes[tree.predictRow(X[i])]++
		}
		labels[i] = rf.classes[argmaxCount(votes)]
	}
	return labels, nil
}

// OOBError returns the out-of-bag misclassification rate of the full
// ensemble.
func (rf *RandomForestClassifier) OOBError() float64 {
	if len(rf.oobCurve) == 0 {
		return math.NaN()
	}
	return rf.oobCurve[len(rf.oobCurve)-1]
}

// OOBErrorCurve returns the cumulative out-of-bag error over tree counts
// 1..numTrees, the diagnostic usually plotted to judge ensemble size.
func (rf *RandomForestClassifier) OOBErrorCurve() []float64 {
	return append([]float64(nil), rf.oobCurve...)
}

// FeatureImportance returns the normalized mean decrease in Gini impurity
// per input column, aligned with the inputs given to Fit.
func (rf *RandomForestClassifier) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, len(rf.inputs))
	for i, name := range rf.inputs {
		out[name] = rf.importance[i]
	}
	return out
}

// computeOOBCurve replays the ensemble tree by tree: after adding tree k,
// every training row votes only with trees whose bootstrap sample excluded
// it, and the error is taken over rows that have at least one such vote.
func (rf *RandomForestClassifier) computeOOBCurve() []float64 {
	n := len(rf.trainX)
	votes := make([][]int, n)
	for i := range votes {
		votes[i] = make([]int, len(rf.classes))
	}

	curve := make([]float64, len(rf.trees))
	for k, tree := range rf.trees {
		inBag := rf.inBag[k]
		for i := 0; i < n; i++ {
			if inBag[i] {
				continue
			}
			votes[i][tree.predictRow(rf.trainX[i])]++
		}

		wrong, voted := 0, 0
		for i := 0; i < n; i++ {
			if sumCounts(votes[i]) == 0 {
				continue
			}
			voted++
			if argmaxCount(votes[i]) != rf.trainY[i] {
				wrong++
			}
		}
		if voted == 0 {
			curve[k] = math.NaN()
			continue
		}
		curve[k] = float64(wrong) / float64(voted)
	}
	return curve
}

// encodeInputs builds the row-major feature matrix used by the trees.
// Numeric columns pass through; categorical columns become level codes.
// When frozen levels and kinds are supplied (prediction), each column must
// still have its fit-time kind, labels are mapped through the frozen level
// sets, and an unseen label is a ColumnTypeError.
func encodeInputs(t *dataset.Table, inputs []string, frozen [][]string, expect []bool, op string) ([][]float64, []bool, [][]string, error) {
	n := t.NumRows()
	p := len(inputs)

	isCat := make([]bool, p)
	levels := make([][]string, p)
	cols := make([]*dataset.Column, p)

	for j, name := range inputs {
		col, err := t.Column(name)
		if err != nil {
			return nil, nil, nil, err
		}
		if expect != nil {
			if expect[j] && col.Kind != dataset.Categorical {
				return nil, nil, nil, errors.NewColumnTypeError(op, name, "categorical", col.Kind.String())
			}
			if !expect[j] && col.Kind != dataset.Numeric {
				return nil, nil, nil, errors.NewColumnTypeError(op, name, "numeric", col.Kind.String())
			}
		}
		cols[j] = col
		if col.Kind == dataset.Categorical {
			isCat[j] = true
			if frozen != nil {
				levels[j] = frozen[j]
			} else {
				levels[j] = append([]string(nil), col.Levels...)
			}
		}
	}

	X := make([][]float64, n)
	for i := 0; i < n; i++ {
		X[i] = make([]float64, p)
	}

	for j, col := range cols {
		if !isCat[j] {
			for i := 0; i < n; i++ {
				if col.IsMissing(i) {
					return nil, nil, nil, errors.NewColumnTypeError(op, col.Name, "non-missing value", "missing value")
				}
				X[i][j] = col.Floats[i]
			}
			continue
		}

		index := make(map[string]int, len(levels[j]))
		for code, lev := range levels[j] {
			index[lev] = code
		}
		for i := 0; i < n; i++ {
			if col.IsMissing(i) {
				return nil, nil, nil, errors.NewColumnTypeError(op, col.Name, "non-missing label", "missing value")
			}
			lab := col.Label(i)
			code, ok := index[lab]
			if !ok {
				return nil, nil, nil, errors.NewColumnTypeError(op, col.Name, "label in frozen level set", lab)
			}
			X[i][j] = float64(code)
		}
	}

	return X, isCat, levels, nil
}

func averageImportance(perTree [][]float64) []float64 {
	if len(perTree) == 0 {
		return nil
	}
	out := make([]float64, len(perTree[0]))
	for _, imp := range perTree {
		for j, v := range imp {
			out[j] += v
		}
	}
	total := 0.0
	for j := range out {
		out[j] /= float64(len(perTree))
		total += out[j]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
