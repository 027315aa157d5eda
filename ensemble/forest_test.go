package ensemble

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
)

// separableTable builds a two-class table where acidity cleanly separates
// the classes and noise carries no signal.
func separableTable(t *testing.T, n int) *dataset.Table {
	t.Helper()

	r := rand.New(rand.NewPCG(7, 7))
	acidity := make([]float64, n)
	noise := make([]float64, n)
	process := make([]string, n)
	grade := make([]string, n)
	methods := []string{"washed", "natural", "honey"}

	for i := 0; i < n; i++ {
		noise[i] = r.Float64()
		process[i] = methods[r.IntN(len(methods))]
		if i%2 == 0 {
			acidity[i] = 7 + r.Float64()
			grade[i] = "high"
		} else {
			acidity[i] = 5 + r.Float64()
			grade[i] = "low"
		}
	}

	table, err := dataset.NewTable(
		dataset.NewNumericColumn("acidity", acidity),
		dataset.NewNumericColumn("noise", noise),
		dataset.NewCategoricalColumn("processing_method", process),
		dataset.NewCategoricalColumn("grade", grade),
	)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return table
}

func TestRandomForestFitPredict(t *testing.T) {
	table := separableTable(t, 120)
	inputs := []string{"acidity", "noise", "processing_method"}

	rf := NewRandomForestClassifier(WithTrees(50), WithSeed(42))
	if err := rf.Fit(table, "grade", inputs); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	pred, err := rf.Predict(table)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(pred) != table.NumRows() {
		t.Fatalf("Predict() returned %d labels, want %d", len(pred), table.NumRows())
	}

	grade, _ := table.Column("grade")
	correct := 0
	for i, p := range pred {
		if p == grade.Label(i) {
			correct++
		}
	}
	acc := float64(correct) / float64(len(pred))
	if acc < 0.95 {
		t.Errorf("training accuracy = %v on separable data, want >= 0.95", acc)
	}

	if oob := rf.OOBError(); oob > 0.2 {
		t.Errorf("OOBError() = %v on separable data, want <= 0.2", oob)
	}
}

func TestRandomForestDeterminism(t *testing.T) {
	table := separableTable(t, 80)
	inputs := []string{"acidity", "noise", "processing_method"}

	fit := func() (*RandomForestClassifier, []string) {
		rf := NewRandomForestClassifier(WithTrees(30), WithSeed(99))
		if err := rf.Fit(table, "grade", inputs); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		pred, err := rf.Predict(table)
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		return rf, pred
	}

	rf1, pred1 := fit()
	rf2, pred2 := fit()

	for i := range pred1 {
		if pred1[i] != pred2[i] {
			t.Fatalf("prediction %d differs between identical fits: %q vs %q", i, pred1[i], pred2[i])
		}
	}

	curve1, curve2 := rf1.OOBErrorCurve(), rf2.OOBErrorCurve()
	if len(curve1) != 30 || len(curve2) != 30 {
		t.Fatalf("OOB curve lengths = %d, %d, want 30", len(curve1), len(curve2))
	}
	for i := range curve1 {
		if curve1[i] != curve2[i] && !(math.IsNaN(curve1[i]) && math.IsNaN(curve2[i])) {
			t.Fatalf("OOB curve[%d] differs: %v vs %v", i, curve1[i], curve2[i])
		}
	}
}

func TestRandomForestFeatureImportance(t *testing.T) {
	table := separableTable(t, 120)
	inputs := []string{"acidity", "noise", "processing_method"}

	rf := NewRandomForestClassifier(WithTrees(50), WithSeed(3))
	if err := rf.Fit(table, "grade", inputs); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	imp := rf.FeatureImportance()
	total := 0.0
	for _, v := range imp {
		if v < 0 {
			t.Errorf("negative importance: %v", imp)
		}
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", total)
	}
	if imp["acidity"] <= imp["noise"] {
		t.Errorf("acidity importance %v should exceed noise %v", imp["acidity"], imp["noise"])
	}
}

func TestRandomForestFitErrors(t *testing.T) {
	table := separableTable(t, 40)

	t.Run("missing column", func(t *testing.T) {
		rf := NewRandomForestClassifier(WithTrees(5))
		err := rf.Fit(table, "grade", []string{"acidity", "body"})
		var schemaErr *errors.SchemaError
		if !errors.As(err, &schemaErr) {
			t.Errorf("expected SchemaError, got %T: %v", err, err)
		}
	})

	t.Run("numeric output", func(t *testing.T) {
		rf := NewRandomForestClassifier(WithTrees(5))
		err := rf.Fit(table, "acidity", []string{"noise"})
		var typeErr *errors.ColumnTypeError
		if !errors.As(err, &typeErr) {
			t.Errorf("expected ColumnTypeError, got %T: %v", err, err)
		}
	})

	t.Run("single class", func(t *testing.T) {
		single, err := dataset.NewTable(
			dataset.NewNumericColumn("x", []float64{1, 2, 3}),
			dataset.NewCategoricalColumn("y", []string{"a", "a", "a"}),
		)
		if err != nil {
			t.Fatalf("NewTable() error = %v", err)
		}
		rf := NewRandomForestClassifier(WithTrees(5))
		fitErr := rf.Fit(single, "y", []string{"x"})
		var cfgErr *errors.ConfigError
		if !errors.As(fitErr, &cfgErr) {
			t.Errorf("expected ConfigError, got %T: %v", fitErr, fitErr)
		}
	})

	t.Run("predict before fit", func(t *testing.T) {
		rf := NewRandomForestClassifier()
		_, err := rf.Predict(table)
		var nfErr *errors.NotFittedError
		if !errors.As(err, &nfErr) {
			t.Errorf("expected NotFittedError, got %T: %v", err, err)
		}
	})
}

func TestRandomForestUnseenLevel(t *testing.T) {
	table := separableTable(t, 40)
	rf := NewRandomForestClassifier(WithTrees(10), WithSeed(5))
	if err := rf.Fit(table, "grade", []string{"acidity", "processing_method"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	other, err := dataset.NewTable(
		dataset.NewNumericColumn("acidity", []float64{6.5}),
		dataset.NewCategoricalColumn("processing_method", []string{"anaerobic"}),
	)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	_, predErr := rf.Predict(other)
	var typeErr *errors.ColumnTypeError
	if !errors.As(predErr, &typeErr) {
		t.Errorf("expected ColumnTypeError for unseen level, got %T: %v", predErr, predErr)
	}
}

func TestRandomForestPredictKindMismatch(t *testing.T) {
	table := separableTable(t, 40)
	rf := NewRandomForestClassifier(WithTrees(10), WithSeed(5))
	if err := rf.Fit(table, "grade", []string{"acidity", "processing_method"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	t.Run("categorical at fit, numeric at predict", func(t *testing.T) {
		other, err := dataset.NewTable(
			dataset.NewNumericColumn("acidity", []float64{6.5}),
			dataset.NewNumericColumn("processing_method", []float64{0}),
		)
		if err != nil {
			t.Fatalf("NewTable() error = %v", err)
		}
		_, predErr := rf.Predict(other)
		var typeErr *errors.ColumnTypeError
		if !errors.As(predErr, &typeErr) {
			t.Errorf("expected ColumnTypeError, got %T: %v", predErr, predErr)
		}
	})

	t.Run("numeric at fit, categorical at predict", func(t *testing.T) {
		other, err := dataset.NewTable(
			dataset.NewCategoricalColumn("acidity", []string{"high"}),
			dataset.NewCategoricalColumn("processing_method", []string{"washed"}),
		)
		if err != nil {
			t.Fatalf("NewTable() error = %v", err)
		}
		_, predErr := rf.Predict(other)
		var typeErr *errors.ColumnTypeError
		if !errors.As(predErr, &typeErr) {
			t.Errorf("expected ColumnTypeError, got %T: %v", predErr, predErr)
		}
	})
}

func TestDefaultMaxFeatures(t *testing.T) {
	tests := []struct {
		p    int
		want int
	}{
		{1, 1},
		{4, 2},
		{9, 3},
		{10, 3},
		{17, 4},
	}
	for _, tt := range tests {
		if got := DefaultMaxFeatures(tt.p); got != tt.want {
			t.Errorf("DefaultMaxFeatures(%d) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestTuneMaxFeatures(t *testing.T) {
	table := separableTable(t, 100)
	inputs := []string{"acidity", "noise", "processing_method"}

	cfg := DefaultTuneConfig()
	cfg.Trees = 30
	cfg.Seed = 11

	res, err := TuneMaxFeatures(table, "grade", inputs, cfg)
	if err != nil {
		t.Fatalf("TuneMaxFeatures() error = %v", err)
	}
	if len(res.Trials) == 0 {
		t.Fatal("no trials recorded")
	}
	if res.Best.MaxFeatures < 1 || res.Best.MaxFeatures > len(inputs) {
		t.Errorf("best max_features = %d out of range", res.Best.MaxFeatures)
	}
	for _, trial := range res.Trials {
		if trial.OOBError <= res.Best.OOBError-1e-12 {
			t.Errorf("trial %+v beats recorded best %+v", trial, res.Best)
		}
	}
}

func TestTuneMaxFeaturesConfigErrors(t *testing.T) {
	table := separableTable(t, 20)
	cfg := DefaultTuneConfig()
	cfg.StepFactor = 1
	if _, err := TuneMaxFeatures(table, "grade", []string{"acidity"}, cfg); err == nil {
		t.Error("StepFactor=1 should fail")
	}

	cfg = DefaultTuneConfig()
	cfg.Trees = 0
	if _, err := TuneMaxFeatures(table, "grade", []string{"acidity"}, cfg); err == nil {
		t.Error("Trees=0 should fail")
	}
}
