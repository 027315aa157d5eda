// Package preprocessing provides feature-encoding transformers used to turn
// typed table columns into numeric design matrices.
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/beanlab/cupping/core/model"
	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
)

// OneHotEncoder expands one categorical column into indicator variables.
// The category set is frozen at Fit time; a label encountered later that is
// outside that set fails with a ColumnTypeError instead of silently
// extending the set. With dropFirst the reference (first) level is omitted,
// which is the parameterization multiple regression needs to avoid the
// dummy-variable trap.
type OneHotEncoder struct {
	model.BaseEstimator
	dropFirst bool
	column    string
	levels    []string
}

// NewOneHotEncoder creates an encoder. dropFirst omits the reference level
// from the output.
func NewOneHotEncoder(dropFirst bool) *OneHotEncoder {
	return &OneHotEncoder{dropFirst: dropFirst}
}

// Fit freezes the level set from a categorical column.
func (e *OneHotEncoder) Fit(col *dataset.Column) error {
	if col.Kind != dataset.Categorical {
		return errors.NewColumnTypeError("OneHotEncoder.Fit", col.Name, "categorical", col.Kind.String())
	}
	if len(col.Levels) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "OneHotEncoder.Fit")
	}
	e.column = col.Name
	e.levels = append([]string(nil), col.Levels...)
	e.SetFitted()
	return nil
}

// Transform expands a column into its indicator matrix, one row per table
// row and one column per non-reference level. Labels are matched by name
// against the frozen set, so the input may carry a differently ordered
// vocabulary as long as every observed label was seen at fit time.
func (e *OneHotEncoder) Transform(col *dataset.Column) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if col.Kind != dataset.Categorical {
		return nil, errors.NewColumnTypeError("OneHotEncoder.Transform", col.Name, "categorical", col.Kind.String())
	}

	index := make(map[string]int, len(e.levels))
	for i, lev := range e.levels {
		index[lev] = i
	}

	n := col.Len()
	width := len(e.levels)
	offset := 0
	if e.dropFirst {
		width--
		offset = 1
	}
	if width == 0 {
		// Single-level column: nothing to encode after dropping the
		// reference level. gonum refuses zero-width matrices, so the
		// empty block is a zero-value Dense with Dims() == (0, 0).
		return &mat.Dense{}, nil
	}

	out := mat.NewDense(n, width, nil)
	for i := 0; i < n; i++ {
		if col.IsMissing(i) {
			return nil, errors.NewColumnTypeError("OneHotEncoder.Transform", col.Name, "non-missing label", "missing value")
		}
		lab := col.Label(i)
		code, ok := index[lab]
		if !ok {
			return nil, errors.NewColumnTypeError("OneHotEncoder.Transform", col.Name,
				fmt.Sprintf("label in frozen set %v", e.levels), fmt.Sprintf("%q", lab))
		}
		if code >= offset {
			out.Set(i, code-offset, 1)
		}
	}
	return out, nil
}

// FitTransform fits the encoder and transforms the same column.
func (e *OneHotEncoder) FitTransform(col *dataset.Column) (*mat.Dense, error) {
	if err := e.Fit(col); err != nil {
		return nil, err
	}
	return e.Transform(col)
}

// FeatureNames returns the output column names, "column=level" per
// non-reference level, in frozen order.
func (e *OneHotEncoder) FeatureNames() []string {
	if !e.IsFitted() {
		return nil
	}
	start := 0
	if e.dropFirst {
		start = 1
	}
	names := make([]string, 0, len(e.levels)-start)
	for _, lev := range e.levels[start:] {
		names = append(names, e.column+"="+lev)
	}
	return names
}

// Levels returns the frozen level set including the reference level.
func (e *OneHotEncoder) Levels() []string {
	return append([]string(nil), e.levels...)
}
