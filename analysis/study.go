// Package analysis composes the pipeline stages into a reproducible study:
// load, clean, derive the quality label, split, then fit and evaluate the
// classifier and the regressor described by a declarative Study.
package analysis

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
)

// SplitSpec is the train/test partition of a study.
type SplitSpec struct {
	Proportion float64 `yaml:"proportion"`
	Seed       uint64  `yaml:"seed"`
}

// LabelSpec derives a two-level categorical column from a numeric one by
// thresholding, e.g. quality class from total cup points.
type LabelSpec struct {
	Column    string  `yaml:"column"`
	From      string  `yaml:"from"`
	Threshold float64 `yaml:"threshold"`
	Above     string  `yaml:"above"`
	Below     string  `yaml:"below"`
}

// ClassificationSpec configures the random-forest section. A zero
// MaxFeatures means round(sqrt(#inputs)); Tune searches for a better value
// on the training split before the final fit.
type ClassificationSpec struct {
	Output         string   `yaml:"output"`
	Inputs         []string `yaml:"inputs"`
	Trees          int      `yaml:"trees"`
	MaxFeatures    int      `yaml:"max_features"`
	Seed           uint64   `yaml:"seed"`
	Tune           bool     `yaml:"tune"`
	TuneStepFactor float64  `yaml:"tune_step_factor"`
	TuneImprove    float64  `yaml:"tune_improve"`
}

// RegressionSpec configures the OLS section. The full formula is fitted
// first and then reduced by backward elimination on AIC.
type RegressionSpec struct {
	Output string   `yaml:"output"`
	Inputs []string `yaml:"inputs"`
}

// Study is the declarative description of one full analysis run. Either
// model section may be left empty to skip it.
type Study struct {
	Source         string              `yaml:"source"`
	Clean          dataset.CleanConfig `yaml:"clean"`
	Label          *LabelSpec          `yaml:"label"`
	Split          SplitSpec           `yaml:"split"`
	Classification *ClassificationSpec `yaml:"classification"`
	Regression     *RegressionSpec     `yaml:"regression"`
}

// LoadStudy reads a Study from a yaml file.
func LoadStudy(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "LoadStudy: reading %s", path)
	}
	var s Study
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "LoadStudy: parsing %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the parts of a study that can fail before any data is
// seen.
func (s *Study) Validate() error {
	if s.Source == "" {
		return errors.NewConfigError("Study.Validate", "source", "must name a file or URL", s.Source)
	}
	if len(s.Clean.Keep) == 0 {
		return errors.NewConfigError("Study.Validate", "clean.keep", "must not be empty", 0)
	}
	if s.Split.Proportion <= 0 || s.Split.Proportion >= 1 {
		return errors.NewConfigError("Study.Validate", "split.proportion", "must be in (0,1)", s.Split.Proportion)
	}
	if s.Label != nil {
		if s.Label.Column == "" || s.Label.From == "" {
			return errors.NewConfigError("Study.Validate", "label", "column and from must be set", s.Label)
		}
		if s.Label.Above == "" || s.Label.Below == "" || s.Label.Above == s.Label.Below {
			return errors.NewConfigError("Study.Validate", "label", "above and below must be distinct labels", s.Label)
		}
	}
	if s.Classification != nil {
		if s.Classification.Output == "" || len(s.Classification.Inputs) == 0 {
			return errors.NewConfigError("Study.Validate", "classification", "output and inputs must be set", s.Classification)
		}
	}
	if s.Regression != nil {
		if s.Regression.Output == "" || len(s.Regression.Inputs) == 0 {
			return errors.NewConfigError("Study.Validate", "regression", "output and inputs must be set", s.Regression)
		}
	}
	if s.Classification == nil && s.Regression == nil {
		return errors.NewConfigError("Study.Validate", "study", "at least one model section is required", nil)
	}
	return nil
}

// DefaultStudy is the Coffee Quality Institute arabica study: sensory
// sub-scores plus origin descriptors, altitude capped below 3500 m, a
// 70/30 split, quality class at 82.5 total cup points.
func DefaultStudy() *Study {
	sensory := []string{
		"aroma", "flavor", "aftertaste", "acidity", "body", "balance",
		"uniformity", "clean_cup", "sweetness", "cupper_points", "moisture",
	}
	origin := []string{
		"species", "country_of_origin", "processing_method", "variety", "color",
	}

	keep := []string{"total_cup_points"}
	keep = append(keep, sensory...)
	keep = append(keep, origin...)
	keep = append(keep, "altitude_mean_meters")

	inputs := append(append([]string(nil), sensory...), origin...)
	inputs = append(inputs, "altitude_mean_meters")

	return &Study{
		Source: "https://raw.githubusercontent.com/jldbc/coffee-quality-database/master/data/arabica_data_cleaned.csv",
		Clean: dataset.CleanConfig{
			Keep:        keep,
			Categorical: origin,
			NumericCaps: map[string]float64{"altitude_mean_meters": 3500},
		},
		Label: &LabelSpec{
			Column:    "quality_class",
			From:      "total_cup_points",
			Threshold: 82.5,
			Above:     "high",
			Below:     "low",
		},
		Split: SplitSpec{Proportion: 0.7, Seed: 42},
		Classification: &ClassificationSpec{
			Output:         "quality_class",
			Inputs:         inputs,
			Trees:          500,
			Seed:           42,
			Tune:           true,
			TuneStepFactor: 2,
			TuneImprove:    0.05,
		},
		Regression: &RegressionSpec{
			Output: "total_cup_points",
			Inputs: inputs,
		},
	}
}
