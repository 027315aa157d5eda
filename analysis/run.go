package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/ensemble"
	"github.com/beanlab/cupping/linear"
	"github.com/beanlab/cupping/metrics"
	"github.com/beanlab/cupping/pkg/errors"
	"github.com/beanlab/cupping/pkg/log"
)

// ClassificationReport is the evaluated random-forest section of a study.
type ClassificationReport struct {
	Output      string
	Inputs      []string
	MaxFeatures int
	TuneTrials  []ensemble.Trial

	OOBError     float64
	OOBCurve     []float64
	TestAccuracy float64
	Confusion    *metrics.ConfusionMatrix
	Importance   map[string]float64
}

// RegressionReport is the evaluated OLS section of a study.
type RegressionReport struct {
	Formula linear.Formula
	Steps   []linear.EliminationStep
	Summary *linear.Summary

	TestR2  float64
	TestMSE float64
}

// Report is the outcome of a full study run.
type Report struct {
	Rows      int
	TrainRows int
	TestRows  int

	Classification *ClassificationReport
	Regression     *RegressionReport
}

// Metrics flattens the report into a name → value mapping for printing.
func (r *Report) Metrics() map[string]float64 {
	out := map[string]float64{
		"data.rows":       float64(r.Rows),
		"data.train_rows": float64(r.TrainRows),
		"data.test_rows":  float64(r.TestRows),
	}
	if c := r.Classification; c != nil {
		out["forest.max_features"] = float64(c.MaxFeatures)
		out["forest.oob_error"] = c.OOBError
		out["forest.test_accuracy"] = c.TestAccuracy
		for name, imp := range c.Importance {
			out["forest.importance."+name] = imp
		}
	}
	if g := r.Regression; g != nil {
		out["ols.r2"] = g.Summary.R2
		out["ols.adjusted_r2"] = g.Summary.AdjustedR2
		out["ols.f_statistic"] = g.Summary.FStat
		out["ols.aic"] = g.Summary.AIC
		out["ols.bic"] = g.Summary.BIC
		out["ols.test_r2"] = g.TestR2
		out["ols.test_mse"] = g.TestMSE
		out["ols.predictors"] = float64(len(g.Formula.Inputs))
		out["ols.eliminated"] = float64(len(g.Steps))
	}
	return out
}

// Run executes a study end to end: load, clean, derive the label, split,
// then fit and evaluate whichever model sections are present.
func Run(ctx context.Context, study *Study) (*Report, error) {
	logger := log.With("analysis")

	if err := study.Validate(); err != nil {
		return nil, err
	}

	raw, err := dataset.Load(ctx, study.Source)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		slog.Int(log.SamplesKey, raw.NumRows()),
		slog.Int(log.FeaturesKey, raw.NumCols()))

	cleaned, err := dataset.Clean(raw, study.Clean)
	if err != nil {
		return nil, err
	}

	if study.Label != nil {
		cleaned, err = deriveLabel(cleaned, study.Label)
		if err != nil {
			return nil, err
		}
	}

	train, test, err := dataset.Split(cleaned, study.Split.Proportion, study.Split.Seed)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Rows:      cleaned.NumRows(),
		TrainRows: train.NumRows(),
		TestRows:  test.NumRows(),
	}

	if study.Classification != nil {
		report.Classification, err = runClassification(train, test, study.Classification)
		if err != nil {
			return nil, err
		}
	}
	if study.Regression != nil {
		report.Regression, err = runRegression(train, test, study.Regression)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("study finished",
		slog.Int(log.SamplesKey, report.Rows))
	return report, nil
}

func runClassification(train, test *dataset.Table, spec *ClassificationSpec) (*ClassificationReport, error) {
	rep := &ClassificationReport{
		Output: spec.Output,
		Inputs: append([]string(nil), spec.Inputs...),
	}

	trees := spec.Trees
	if trees <= 0 {
		trees = 500
	}
	maxFeatures := spec.MaxFeatures

	if spec.Tune {
		cfg := ensemble.DefaultTuneConfig()
		cfg.Trees = trees
		cfg.Seed = spec.Seed
		if spec.TuneStepFactor > 1 {
			cfg.StepFactor = spec.TuneStepFactor
		}
		if spec.TuneImprove > 0 {
			cfg.Improve = spec.TuneImprove
		}
		tuned, err := ensemble.TuneMaxFeatures(train, spec.Output, spec.Inputs, cfg)
		if err != nil {
			return nil, err
		}
		maxFeatures = tuned.Best.MaxFeatures
		rep.TuneTrials = tuned.Trials
	}

	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithTrees(trees),
		ensemble.WithMaxFeatures(maxFeatures),
		ensemble.WithSeed(spec.Seed),
	)
	if err := rf.Fit(train, spec.Output, spec.Inputs); err != nil {
		return nil, err
	}

	rep.MaxFeatures = rf.MaxFeatures()
	rep.OOBError = rf.OOBError()
	rep.OOBCurve = rf.OOBErrorCurve()
	rep.Importance = rf.FeatureImportance()

	predicted, err := rf.Predict(test)
	if err != nil {
		return nil, err
	}
	actual, err := labelVector(test, spec.Output)
	if err != nil {
		return nil, err
	}

	rep.Confusion, err = metrics.NewConfusionMatrix(actual, predicted, rf.Classes())
	if err != nil {
		return nil, err
	}
	rep.TestAccuracy = rep.Confusion.Accuracy()
	return rep, nil
}

func runRegression(train, test *dataset.Table, spec *RegressionSpec) (*RegressionReport, error) {
	res, err := linear.BackwardEliminate(train, linear.Formula{
		Output: spec.Output,
		Inputs: spec.Inputs,
	})
	if err != nil {
		return nil, err
	}

	summary, err := res.Model.Summary()
	if err != nil {
		return nil, err
	}

	rep := &RegressionReport{
		Formula: res.Formula,
		Steps:   res.Steps,
		Summary: summary,
	}

	predicted, err := res.Model.Predict(test)
	if err != nil {
		return nil, err
	}
	actual, err := numericVector(test, spec.Output)
	if err != nil {
		return nil, err
	}

	rep.TestR2, err = metrics.R2Score(actual, predicted)
	if err != nil {
		return nil, err
	}
	rep.TestMSE, err = metrics.MSE(actual, predicted)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func labelVector(t *dataset.Table, name string) ([]string, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.Categorical {
		return nil, errors.NewColumnTypeError("labelVector", name, "categorical", col.Kind.String())
	}
	out := make([]string, col.Len())
	for i := range out {
		if col.IsMissing(i) {
			return nil, errors.NewColumnTypeError("labelVector", name, "non-missing label", "missing value")
		}
		out[i] = col.Label(i)
	}
	return out, nil
}

func numericVector(t *dataset.Table, name string) (*mat.VecDense, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.Numeric {
		return nil, errors.NewColumnTypeError("numericVector", name, "numeric", col.Kind.String())
	}
	out := mat.NewVecDense(col.Len(), nil)
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			return nil, errors.NewColumnTypeError("numericVector", name, "non-missing value", "missing value")
		}
		out.SetVec(i, col.Floats[i])
	}
	return out, nil
}

// deriveLabel appends the thresholded quality label column.
func deriveLabel(t *dataset.Table, spec *LabelSpec) (*dataset.Table, error) {
	src, err := t.Column(spec.From)
	if err != nil {
		return nil, err
	}
	if src.Kind != dataset.Numeric {
		return nil, errors.NewColumnTypeError("deriveLabel", spec.From, "numeric", src.Kind.String())
	}
	if t.HasColumn(spec.Column) {
		return nil, errors.NewConfigError("deriveLabel", "label.column",
			fmt.Sprintf("column %q already exists", spec.Column), spec.Column)
	}

	labels := make([]string, src.Len())
	for i := range labels {
		if src.IsMissing(i) {
			continue // stored as missing
		}
		if src.Floats[i] >= spec.Threshold {
			labels[i] = spec.Above
		} else {
			labels[i] = spec.Below
		}
	}
	return t.WithColumn(dataset.NewCategoricalColumn(spec.Column, labels))
}
