// Package linear implements ordinary least squares regression on typed
// tables: categorical inputs expand into drop-first indicator blocks, the
// coefficients come from the normal equations, and a fitted model carries
// the full inferential summary (standard errors, t and F statistics, R²,
// AIC, BIC). Backward elimination searches the predictor set by AIC.
package linear

import (
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/beanlab/cupping/core/model"
	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
	"github.com/beanlab/cupping/pkg/log"
	"github.com/beanlab/cupping/preprocessing"
)

// Formula names the output column and the input columns of a regression.
// Categorical inputs contribute one indicator column per non-reference
// level; numeric inputs contribute themselves.
type Formula struct {
	Output string
	Inputs []string
}

// term maps one input column to its block of design-matrix columns.
type term struct {
	input   string
	width   int
	encoder *preprocessing.OneHotEncoder // nil for numeric inputs
}

// OLS is an ordinary least squares regression model. The design matrix
// layout (term order, indicator levels) is frozen at fit time.
type OLS struct {
	model.BaseEstimator

	formula      Formula
	terms        []term
	featureNames []string // intercept first, then term blocks in input order
	coef         *mat.VecDense
	summary      *Summary
}

// NewOLS creates an unfitted model.
func NewOLS() *OLS {
	return &OLS{}
}

// Formula returns the formula the model was (or will be) fitted with.
func (o *OLS) Formula() Formula {
	return o.formula
}

// Coefficients returns the fitted coefficient vector, intercept first,
// aligned with FeatureNames.
func (o *OLS) Coefficients() (*mat.VecDense, error) {
	if !o.IsFitted() {
		return nil, errors.NewNotFittedError("OLS", "Coefficients")
	}
	out := mat.NewVecDense(o.coef.Len(), nil)
	out.CopyVec(o.coef)
	return out, nil
}

// FeatureNames returns the design-matrix column names, intercept first.
func (o *OLS) FeatureNames() []string {
	return append([]string(nil), o.featureNames...)
}

// Summary returns the inferential summary computed at fit time.
func (o *OLS) Summary() (*Summary, error) {
	if !o.IsFitted() {
		return nil, errors.NewNotFittedError("OLS", "Summary")
	}
	return o.summary, nil
}

// Fit estimates the coefficients on the training table by solving the
// normal equations. A perfectly collinear design is a SingularMatrixError;
// a design with more columns than rows is a ConfigError.
func (o *OLS) Fit(t *dataset.Table, formula Formula) error {
	logger := log.With("linear")

	if len(formula.Inputs) == 0 {
		return errors.NewConfigError("OLS.Fit", "inputs", "must not be empty", 0)
	}

	y, err := outputVector(t, formula.Output, "OLS.Fit")
	if err != nil {
		return err
	}

	o.formula = Formula{Output: formula.Output, Inputs: append([]string(nil), formula.Inputs...)}
	X, err := o.buildDesign(t, true)
	if err != nil {
		return err
	}

	n, k := X.Dims()
	if n <= k {
		return errors.NewConfigError("OLS.Fit", "rows",
			"need more observations than design columns", n)
	}

	// beta = (X'X)^-1 X'y. The explicit inverse is kept because the
	// summary needs the diagonal of (X'X)^-1 for standard errors.
	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if invErr := xtxInv.Inverse(&xtx); invErr != nil {
		return errors.NewSingularMatrixError("OLS.Fit", n, k)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	coef := mat.NewVecDense(k, nil)
	coef.MulVec(&xtxInv, &xty)
	o.coef = coef

	summary, err := computeSummary(o.featureNames, X, y, coef, &xtxInv)
	if err != nil {
		return err
	}
	o.summary = summary
	o.SetFitted()

	logger.Debug("regression fitted",
		slog.String(log.ModelNameKey, "OLS"),
		slog.String(log.OperationKey, "fit"),
		slog.Int(log.SamplesKey, n),
		slog.Int(log.FeaturesKey, k-1),
		slog.Float64(log.R2ScoreKey, summary.R2),
		slog.Float64(log.AICKey, summary.AIC))
	return nil
}

// Predict returns fitted values for the rows of the table. Categorical
// inputs must only carry labels seen at fit time.
func (o *OLS) Predict(t *dataset.Table) (*mat.VecDense, error) {
	if !o.IsFitted() {
		return nil, errors.NewNotFittedError("OLS", "Predict")
	}
	X, err := o.buildDesign(t, false)
	if err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	out := mat.NewVecDense(n, nil)
	out.MulVec(X, o.coef)
	return out, nil
}

// buildDesign assembles the design matrix: an intercept column of ones
// followed by one block per input. On the fitting pass the categorical
// encoders freeze their level sets; afterwards they only transform.
func (o *OLS) buildDesign(t *dataset.Table, fitting bool) (*mat.Dense, error) {
	op := "OLS.Predict"
	if fitting {
		op = "OLS.Fit"
		o.terms = o.terms[:0]
		o.featureNames = []string{"(Intercept)"}
	}

	n := t.NumRows()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}

	blocks := make([]*mat.Dense, 0, len(o.formula.Inputs))
	width := 1

	for ti, name := range o.formula.Inputs {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}

		// The design layout is frozen at fit time; a column that changed
		// kind since then cannot be encoded into it.
		if !fitting {
			tm := o.terms[ti]
			if tm.encoder != nil && col.Kind != dataset.Categorical {
				return nil, errors.NewColumnTypeError(op, name, "categorical", col.Kind.String())
			}
			if tm.encoder == nil && col.Kind != dataset.Numeric {
				return nil, errors.NewColumnTypeError(op, name, "numeric", col.Kind.String())
			}
		}

		var block *mat.Dense
		switch col.Kind {
		case dataset.Numeric:
			block = mat.NewDense(n, 1, nil)
			for i := 0; i < n; i++ {
				if col.IsMissing(i) {
					return nil, errors.NewColumnTypeError(op, name, "non-missing value", "missing value")
				}
				block.Set(i, 0, col.Floats[i])
			}
			if fitting {
				o.terms = append(o.terms, term{input: name, width: 1})
				o.featureNames = append(o.featureNames, name)
			}
		case dataset.Categorical:
			if fitting {
				enc := preprocessing.NewOneHotEncoder(true)
				block, err = enc.FitTransform(col)
				if err != nil {
					return nil, err
				}
				_, w := block.Dims()
				o.terms = append(o.terms, term{input: name, width: w, encoder: enc})
				o.featureNames = append(o.featureNames, enc.FeatureNames()...)
			} else {
				block, err = o.terms[ti].encoder.Transform(col)
				if err != nil {
					return nil, err
				}
			}
		default:
			return nil, errors.NewColumnTypeError(op, name, "numeric or categorical", col.Kind.String())
		}

		_, w := block.Dims()
		blocks = append(blocks, block)
		width += w
	}

	X := mat.NewDense(n, width, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
	}
	offset := 1
	for _, block := range blocks {
		_, w := block.Dims()
		if w > 0 {
			X.Slice(0, n, offset, offset+w).(*mat.Dense).Copy(block)
		}
		offset += w
	}
	return X, nil
}

// outputVector extracts a numeric output column as a vector.
func outputVector(t *dataset.Table, name, op string) (*mat.VecDense, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.Numeric {
		return nil, errors.NewColumnTypeError(op, name, "numeric", col.Kind.String())
	}
	n := col.Len()
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if col.IsMissing(i) {
			return nil, errors.NewColumnTypeError(op, name, "non-missing value", "missing value")
		}
		y.SetVec(i, col.Floats[i])
	}
	return y, nil
}
