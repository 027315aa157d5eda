package ensemble

import (
	"log/slog"
	"math"

	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
	"github.com/beanlab/cupping/pkg/log"
)

// TuneConfig controls the split-variable search.
type TuneConfig struct {
	// Trees is the ensemble size used for each trial fit.
	Trees int
	// StepFactor multiplies/divides the candidate between steps. Must be
	// greater than 1.
	StepFactor float64
	// Improve is the minimum relative OOB-error improvement required to
	// keep walking in a direction.
	Improve float64
	// Seed is the root seed shared by every trial, so trials differ only
	// in the candidate value.
	Seed uint64
}

// DefaultTuneConfig mirrors the conventional search settings: double or
// halve the candidate each step and require a 5% relative improvement.
func DefaultTuneConfig() TuneConfig {
	return TuneConfig{
		Trees:      500,
		StepFactor: 2,
		Improve:    0.05,
		Seed:       1,
	}
}

// Trial records one candidate evaluation.
type Trial struct {
	MaxFeatures int
	OOBError    float64
}

// TuneResult is the outcome of TuneMaxFeatures.
type TuneResult struct {
	// Best is the candidate with the lowest out-of-bag error.
	Best Trial
	// Trials lists every evaluation in the order it ran.
	Trials []Trial
}

// TuneMaxFeatures searches for the split-variable count that minimizes
// out-of-bag error. Starting from round(sqrt(#inputs)) it walks outward in
// both directions by StepFactor, stopping in a direction once the relative
// improvement over the current best falls below Improve.
func TuneMaxFeatures(t *dataset.Table, output string, inputs []string, cfg TuneConfig) (*TuneResult, error) {
	logger := log.With("ensemble")

	if cfg.StepFactor <= 1 {
		return nil, errors.NewConfigError("TuneMaxFeatures", "StepFactor", "must be > 1", cfg.StepFactor)
	}
	if cfg.Trees <= 0 {
		return nil, errors.NewConfigError("TuneMaxFeatures", "Trees", "must be positive", cfg.Trees)
	}

	p := len(inputs)
	start := DefaultMaxFeatures(p)

	tried := make(map[int]bool)
	result := &TuneResult{}

	evaluate := func(m int) (float64, error) {
		rf := NewRandomForestClassifier(
			WithTrees(cfg.Trees),
			WithMaxFeatures(m),
			WithSeed(cfg.Seed),
		)
		if err := rf.Fit(t, output, inputs); err != nil {
			return 0, err
		}
		oob := rf.OOBError()
		tried[m] = true
		result.Trials = append(result.Trials, Trial{MaxFeatures: m, OOBError: oob})
		logger.Debug("tuning trial",
			slog.String(log.OperationKey, "tune"),
			slog.Int(log.MaxFeaturesKey, m),
			slog.Float64(log.OOBErrorKey, oob))
		return oob, nil
	}

	startErr, err := evaluate(start)
	if err != nil {
		return nil, err
	}
	accepted := Trial{MaxFeatures: start, OOBError: startErr}

	// Walk outward in each direction while the candidate keeps improving
	// on the accepted error by at least the required margin.
	for _, grow := range []bool{true, false} {
		m := start
		for {
			next := nextCandidate(m, cfg.StepFactor, grow)
			if next < 1 || next > p || tried[next] {
				break
			}
			oob, err := evaluate(next)
			if err != nil {
				return nil, err
			}
			if oob >= accepted.OOBError*(1-cfg.Improve) {
				break
			}
			accepted = Trial{MaxFeatures: next, OOBError: oob}
			m = next
		}
	}

	// Report the overall minimum, which may be a trial that fell short of
	// the walking threshold.
	result.Best = result.Trials[0]
	for _, trial := range result.Trials[1:] {
		if trial.OOBError < result.Best.OOBError {
			result.Best = trial
		}
	}

	logger.Info("tuning finished",
		slog.String(log.OperationKey, "tune"),
		slog.Int(log.MaxFeaturesKey, result.Best.MaxFeatures),
		slog.Float64(log.OOBErrorKey, result.Best.OOBError))
	return result, nil
}

func nextCandidate(m int, factor float64, grow bool) int {
	var next int
	if grow {
		next = int(math.Ceil(float64(m) * factor))
	} else {
		next = int(math.Floor(float64(m) / factor))
	}
	if next == m {
		if grow {
			next = m + 1
		} else {
			next = m - 1
		}
	}
	return next
}
