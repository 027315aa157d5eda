// Package model defines the base estimator state shared by every fitted
// model in the pipeline.
package model

// EstimatorState represents whether a model has been fitted.
type EstimatorState int

const (
	// NotFitted is the state before Fit has completed.
	NotFitted EstimatorState = iota
	// Fitted is the state after a successful Fit.
	Fitted
)

// BaseEstimator is embedded by every model to track its fitted state.
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted reports whether the model has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the model as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the model to its initial unfitted state.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
