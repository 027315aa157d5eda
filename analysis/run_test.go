package analysis

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beanlab/cupping/dataset"
)

// writeSyntheticCSV writes a small cupping-sheet CSV with one all-null row
// and one altitude outlier, both of which cleaning must drop.
func writeSyntheticCSV(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Total.Cup.Points,Aroma,Flavor,Processing.Method,Altitude.Mean.Meters\n")
	for i := 0; i < 40; i++ {
		tcp := 80 + 0.1*float64(i) + 0.05*float64(i%3-1)
		aroma := 7 + 0.05*float64(i)
		flavor := 7 + 0.3*float64((i*7)%5)
		method := "washed"
		if i%2 == 1 {
			method = "natural"
		}
		altitude := 1000 + 10*float64(i)
		switch i {
		case 5:
			fmt.Fprintf(&b, "%.2f,%.2f,NA,%s,%.0f\n", tcp, aroma, method, altitude)
		case 11:
			fmt.Fprintf(&b, "%.2f,%.2f,%.2f,%s,4000\n", tcp, aroma, flavor, method)
		default:
			fmt.Fprintf(&b, "%.2f,%.2f,%.2f,%s,%.0f\n", tcp, aroma, flavor, method, altitude)
		}
	}

	path := filepath.Join(t.TempDir(), "cupping.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
	return path
}

func syntheticStudy(source string) *Study {
	return &Study{
		Source: source,
		Clean: dataset.CleanConfig{
			Keep: []string{
				"total_cup_points", "aroma", "flavor",
				"processing_method", "altitude_mean_meters",
			},
			Categorical: []string{"processing_method"},
			NumericCaps: map[string]float64{"altitude_mean_meters": 3500},
		},
		Label: &LabelSpec{
			Column:    "quality_class",
			From:      "total_cup_points",
			Threshold: 82,
			Above:     "high",
			Below:     "low",
		},
		Split: SplitSpec{Proportion: 0.7, Seed: 42},
		Classification: &ClassificationSpec{
			Output: "quality_class",
			Inputs: []string{"aroma", "flavor", "processing_method", "altitude_mean_meters"},
			Trees:  25,
			Seed:   7,
		},
		Regression: &RegressionSpec{
			Output: "total_cup_points",
			Inputs: []string{"aroma", "flavor", "processing_method"},
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	path := writeSyntheticCSV(t)
	study := syntheticStudy(path)

	report, err := Run(context.Background(), study)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 40 rows minus the null-flavor row and the altitude outlier.
	if report.Rows != 38 {
		t.Errorf("Rows = %d, want 38", report.Rows)
	}
	if report.TrainRows != 27 || report.TestRows != 11 {
		t.Errorf("split = %d/%d, want 27/11", report.TrainRows, report.TestRows)
	}

	c := report.Classification
	if c == nil {
		t.Fatal("missing classification report")
	}
	if c.OOBError < 0 || c.OOBError > 1 {
		t.Errorf("OOB error = %v out of [0,1]", c.OOBError)
	}
	if len(c.OOBCurve) != 25 {
		t.Errorf("OOB curve length = %d, want 25", len(c.OOBCurve))
	}
	if c.TestAccuracy < 0 || c.TestAccuracy > 1 {
		t.Errorf("test accuracy = %v out of [0,1]", c.TestAccuracy)
	}
	if c.Confusion.Total() != report.TestRows {
		t.Errorf("confusion total = %d, want %d", c.Confusion.Total(), report.TestRows)
	}
	impTotal := 0.0
	for _, v := range c.Importance {
		impTotal += v
	}
	if math.Abs(impTotal-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", impTotal)
	}

	g := report.Regression
	if g == nil {
		t.Fatal("missing regression report")
	}
	if g.Summary.R2 <= 0.9 {
		t.Errorf("train R2 = %v, want > 0.9 on near-linear data", g.Summary.R2)
	}
	if g.TestR2 > 1 {
		t.Errorf("test R2 = %v, cannot exceed 1", g.TestR2)
	}
	for _, step := range g.Steps {
		if step.AICAfter >= step.AICBefore {
			t.Errorf("elimination step raised AIC: %+v", step)
		}
	}
	if len(g.Formula.Inputs) < 1 || len(g.Formula.Inputs) > 3 {
		t.Errorf("surviving inputs = %v", g.Formula.Inputs)
	}

	m := report.Metrics()
	for _, key := range []string{"data.rows", "forest.oob_error", "forest.test_accuracy", "ols.aic", "ols.test_r2"} {
		if _, ok := m[key]; !ok {
			t.Errorf("Metrics() missing %q", key)
		}
	}
}

func TestRunDeterminism(t *testing.T) {
	path := writeSyntheticCSV(t)
	study := syntheticStudy(path)

	r1, err := Run(context.Background(), study)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	r2, err := Run(context.Background(), study)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if r1.Classification.OOBError != r2.Classification.OOBError {
		t.Errorf("OOB error differs across identical runs: %v vs %v",
			r1.Classification.OOBError, r2.Classification.OOBError)
	}
	if r1.Classification.TestAccuracy != r2.Classification.TestAccuracy {
		t.Errorf("test accuracy differs across identical runs")
	}
	if r1.Regression.Summary.AIC != r2.Regression.Summary.AIC {
		t.Errorf("AIC differs across identical runs")
	}
}

func TestDeriveLabel(t *testing.T) {
	table, err := dataset.NewTable(
		dataset.NewNumericColumn("total_cup_points", []float64{81, 83, 82.5, math.NaN()}),
	)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	spec := &LabelSpec{Column: "quality_class", From: "total_cup_points", Threshold: 82.5, Above: "high", Below: "low"}
	out, err := deriveLabel(table, spec)
	if err != nil {
		t.Fatalf("deriveLabel() error = %v", err)
	}

	col, err := out.Column("quality_class")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	want := []string{"low", "high", "high"}
	for i, w := range want {
		if col.Label(i) != w {
			t.Errorf("label[%d] = %q, want %q", i, col.Label(i), w)
		}
	}
	if !col.IsMissing(3) {
		t.Error("missing source value should produce a missing label")
	}

	// Deriving onto an existing column name fails.
	if _, err := deriveLabel(out, spec); err == nil {
		t.Error("duplicate label column should fail")
	}
}

func TestStudyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Study)
	}{
		{"empty source", func(s *Study) { s.Source = "" }},
		{"empty keep", func(s *Study) { s.Clean.Keep = nil }},
		{"bad proportion", func(s *Study) { s.Split.Proportion = 1.2 }},
		{"label without column", func(s *Study) { s.Label.Column = "" }},
		{"identical label names", func(s *Study) { s.Label.Below = s.Label.Above }},
		{"classification without inputs", func(s *Study) { s.Classification.Inputs = nil }},
		{"regression without output", func(s *Study) { s.Regression.Output = "" }},
		{"no model sections", func(s *Study) { s.Classification = nil; s.Regression = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := syntheticStudy("data.csv")
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}

	if err := syntheticStudy("data.csv").Validate(); err != nil {
		t.Errorf("valid study rejected: %v", err)
	}
}

func TestLoadStudy(t *testing.T) {
	yamlText := `
source: data/cupping.csv
clean:
  keep: [total_cup_points, aroma, processing_method]
  categorical: [processing_method]
  numeric_caps:
    altitude_mean_meters: 3500
split:
  proportion: 0.7
  seed: 42
regression:
  output: total_cup_points
  inputs: [aroma, processing_method]
`
	path := filepath.Join(t.TempDir(), "study.yaml")
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatalf("writing yaml: %v", err)
	}

	s, err := LoadStudy(path)
	if err != nil {
		t.Fatalf("LoadStudy() error = %v", err)
	}
	if s.Source != "data/cupping.csv" {
		t.Errorf("source = %q", s.Source)
	}
	if s.Split.Seed != 42 || s.Split.Proportion != 0.7 {
		t.Errorf("split = %+v", s.Split)
	}
	if s.Clean.NumericCaps["altitude_mean_meters"] != 3500 {
		t.Errorf("caps = %v", s.Clean.NumericCaps)
	}
	if s.Regression == nil || s.Classification != nil {
		t.Errorf("sections = %+v / %+v", s.Classification, s.Regression)
	}
}

func TestLoadStudyErrors(t *testing.T) {
	if _, err := LoadStudy(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("source: [unclosed"), 0o644); err != nil {
		t.Fatalf("writing yaml: %v", err)
	}
	if _, err := LoadStudy(bad); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestDefaultStudy(t *testing.T) {
	s := DefaultStudy()
	if err := s.Validate(); err != nil {
		t.Fatalf("DefaultStudy().Validate() error = %v", err)
	}
	if s.Clean.NumericCaps["altitude_mean_meters"] != 3500 {
		t.Errorf("altitude cap = %v, want 3500", s.Clean.NumericCaps)
	}
	if s.Classification.Trees != 500 {
		t.Errorf("trees = %d, want 500", s.Classification.Trees)
	}
	if s.Label == nil || s.Label.Threshold != 82.5 {
		t.Errorf("label = %+v", s.Label)
	}
}
