package preprocessing

import (
	"testing"

	"github.com/beanlab/cupping/dataset"
	"github.com/beanlab/cupping/pkg/errors"
)

func TestOneHotEncoderDropFirst(t *testing.T) {
	col := dataset.NewCategoricalColumn("method", []string{"washed", "natural", "honey", "washed"})

	enc := NewOneHotEncoder(true)
	out, err := enc.FitTransform(&col)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := out.Dims()
	if r != 4 || c != 2 {
		t.Fatalf("dims = %dx%d, want 4x2", r, c)
	}

	// washed is the reference level: all-zero row.
	want := [][]float64{
		{0, 0},
		{1, 0},
		{0, 1},
		{0, 0},
	}
	for i := range want {
		for j := range want[i] {
			if out.At(i, j) != want[i][j] {
				t.Errorf("out[%d][%d] = %v, want %v", i, j, out.At(i, j), want[i][j])
			}
		}
	}

	names := enc.FeatureNames()
	if len(names) != 2 || names[0] != "method=natural" || names[1] != "method=honey" {
		t.Errorf("FeatureNames() = %v", names)
	}
}

func TestOneHotEncoderKeepAll(t *testing.T) {
	col := dataset.NewCategoricalColumn("color", []string{"green", "blue"})

	enc := NewOneHotEncoder(false)
	out, err := enc.FitTransform(&col)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if _, c := out.Dims(); c != 2 {
		t.Errorf("columns = %d, want 2", c)
	}
	if out.At(0, 0) != 1 || out.At(1, 1) != 1 {
		t.Errorf("indicator placement wrong")
	}
}

func TestOneHotEncoderUnseenLabel(t *testing.T) {
	trainCol := dataset.NewCategoricalColumn("variety", []string{"bourbon", "typica"})
	testCol := dataset.NewCategoricalColumn("variety", []string{"bourbon", "geisha"})

	enc := NewOneHotEncoder(true)
	if err := enc.Fit(&trainCol); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	_, err := enc.Transform(&testCol)
	if err == nil {
		t.Fatal("Transform() with unseen label should fail")
	}
	var typeErr *errors.ColumnTypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("expected ColumnTypeError, got %T: %v", err, err)
	}
}

func TestOneHotEncoderErrors(t *testing.T) {
	numCol := dataset.NewNumericColumn("x", []float64{1, 2})

	enc := NewOneHotEncoder(true)
	if err := enc.Fit(&numCol); err == nil {
		t.Error("Fit() on numeric column should fail")
	}

	catCol := dataset.NewCategoricalColumn("c", []string{"a"})
	if _, err := NewOneHotEncoder(true).Transform(&catCol); err == nil {
		t.Error("Transform() before Fit() should fail")
	}
}

func TestOneHotEncoderSingleLevel(t *testing.T) {
	col := dataset.NewCategoricalColumn("species", []string{"arabica", "arabica"})

	enc := NewOneHotEncoder(true)
	out, err := enc.FitTransform(&col)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if _, c := out.Dims(); c != 0 {
		t.Errorf("single-level drop-first should yield zero columns, got %d", c)
	}
}
