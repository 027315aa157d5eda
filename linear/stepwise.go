package linear

import (
	"log/slog"

	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
	"github.com/beanlab/cupping/pkg/log"
)

// EliminationStep records one predictor removal during backward
// elimination.
type EliminationStep struct {
	Removed   string
	AICBefore float64
	AICAfter  float64
}

// EliminationResult is the outcome of a backward-elimination search.
type EliminationResult struct {
	// Model is the final refitted model.
	Model *OLS
	// Formula is the surviving formula.
	Formula Formula
	// Steps lists the removals in order; empty when the full model already
	// minimizes AIC.
	Steps []EliminationStep
}

// BackwardEliminate fits the full formula and then greedily removes the
// input whose removal lowers AIC the most, refitting after each removal.
// Categorical inputs leave or stay as a whole indicator block. The search
// stops when no single removal improves AIC or when one input remains.
func BackwardEliminate(t *dataset.Table, formula Formula) (*EliminationResult, error) {
	logger := log.With("linear")

	if len(formula.Inputs) == 0 {
		return nil, errors.NewConfigError("BackwardEliminate", "inputs", "must not be empty", 0)
	}

	current := Formula{Output: formula.Output, Inputs: append([]string(nil), formula.Inputs...)}

	model := NewOLS()
	if err := model.Fit(t, current); err != nil {
		return nil, err
	}
	summary, err := model.Summary()
	if err != nil {
		return nil, err
	}
	currentAIC := summary.AIC

	result := &EliminationResult{}

	for len(current.Inputs) > 1 {
		bestIdx := -1
		bestAIC := currentAIC
		var bestModel *OLS

		for i := range current.Inputs {
			candidate := Formula{
				Output: current.Output,
				Inputs: without(current.Inputs, i),
			}
			m := NewOLS()
			if err := m.Fit(t, candidate); err != nil {
				// A candidate that cannot be fitted (for example a
				// now-singular design) is skipped, not fatal.
				var singular *errors.SingularMatrixError
				if errors.As(err, &singular) {
					continue
				}
				return nil, err
			}
			s, err := m.Summary()
			if err != nil {
				return nil, err
			}
			if s.AIC < bestAIC {
				bestAIC = s.AIC
				bestIdx = i
				bestModel = m
			}
		}

		if bestIdx < 0 {
			break
		}

		removed := current.Inputs[bestIdx]
		result.Steps = append(result.Steps, EliminationStep{
			Removed:   removed,
			AICBefore: currentAIC,
			AICAfter:  bestAIC,
		})
		logger.Debug("dropped predictor",
			slog.String(log.OperationKey, "eliminate"),
			slog.String("predictor", removed),
			slog.Float64(log.AICKey, bestAIC))

		current.Inputs = without(current.Inputs, bestIdx)
		currentAIC = bestAIC
		model = bestModel
	}

	result.Model = model
	result.Formula = current

	logger.Info("backward elimination finished",
		slog.String(log.OperationKey, "eliminate"),
		slog.Int(log.FeaturesKey, len(current.Inputs)),
		slog.Float64(log.AICKey, currentAIC))
	return result, nil
}

func without(inputs []string, i int) []string {
	out := make([]string, 0, len(inputs)-1)
	out = append(out, inputs[:i]...)
	return append(out, inputs[i+1:]...)
}
