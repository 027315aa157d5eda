// Package metrics provides the pure evaluation functions of the pipeline:
// classification accuracy and confusion matrices over label vectors, and
// residual/goodness-of-fit measures over numeric vectors.
package metrics

import (
	"github.com/beanlab/cupping/pkg/errors"
)

// ConfusionMatrix is a |labels| x |labels| count table of (actual,
// predicted) pairs. Rows index the actual label, columns the predicted one.
type ConfusionMatrix struct {
	Labels []string
	Counts [][]int
}

// NewConfusionMatrix tallies predictions against actuals over a fixed label
// set. A label outside the set is a ConfigError: the set is frozen by the
// caller, typically from the fitted model's class levels.
func NewConfusionMatrix(actual, predicted []string, labels []string) (*ConfusionMatrix, error) {
	if len(actual) != len(predicted) {
		return nil, errors.NewConfigError("NewConfusionMatrix", "predicted", "length must match actual", len(predicted))
	}
	if len(labels) == 0 {
		return nil, errors.NewConfigError("NewConfusionMatrix", "labels", "must not be empty", 0)
	}

	index := make(map[string]int, len(labels))
	for i, lab := range labels {
		index[lab] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}

	for i := range actual {
		ai, ok := index[actual[i]]
		if !ok {
			return nil, errors.NewConfigError("NewConfusionMatrix", "actual", "label outside the frozen set", actual[i])
		}
		pi, ok := index[predicted[i]]
		if !ok {
			return nil, errors.NewConfigError("NewConfusionMatrix", "predicted", "label outside the frozen set", predicted[i])
		}
		counts[ai][pi]++
	}

	return &ConfusionMatrix{Labels: append([]string(nil), labels...), Counts: counts}, nil
}

// Total returns the number of evaluated pairs.
func (cm *ConfusionMatrix) Total() int {
	total := 0
	for _, row := range cm.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// Trace returns the number of correctly classified pairs.
func (cm *ConfusionMatrix) Trace() int {
	trace := 0
	for i := range cm.Counts {
		trace += cm.Counts[i][i]
	}
	return trace
}

// Accuracy returns trace/total.
func (cm *ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return float64(cm.Trace()) / float64(total)
}

// ActualCount returns the number of rows whose actual label is the i-th
// label, i.e. the i-th row sum.
func (cm *ConfusionMatrix) ActualCount(i int) int {
	sum := 0
	for _, c := range cm.Counts[i] {
		sum += c
	}
	return sum
}

// Accuracy returns the fraction of positions where predicted equals actual.
func Accuracy(actual, predicted []string) (float64, error) {
	if len(actual) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "Accuracy")
	}
	if len(actual) != len(predicted) {
		return 0, errors.NewConfigError("Accuracy", "predicted", "length must match actual", len(predicted))
	}

	correct := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual)), nil
}
