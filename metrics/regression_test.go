package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestResiduals(t *testing.T) {
	actual := mat.NewVecDense(3, []float64{3, 1, 4})
	predicted := mat.NewVecDense(3, []float64{2, 2, 4})

	res, err := Residuals(actual, predicted)
	if err != nil {
		t.Fatalf("Residuals() error = %v", err)
	}
	want := []float64{1, -1, 0}
	for i, w := range want {
		if math.Abs(res.AtVec(i)-w) > 1e-12 {
			t.Errorf("residual[%d] = %v, want %v", i, res.AtVec(i), w)
		}
	}
}

func TestResidualsLengthMismatch(t *testing.T) {
	actual := mat.NewVecDense(3, []float64{1, 2, 3})
	predicted := mat.NewVecDense(2, []float64{1, 2})
	if _, err := Residuals(actual, predicted); err == nil {
		t.Error("Residuals() expected error on mismatched lengths")
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name      string
		actual    []float64
		predicted []float64
		want      float64
		wantErr   bool
	}{
		{
			name:      "perfect fit",
			actual:    []float64{1, 2, 3, 4},
			predicted: []float64{1, 2, 3, 4},
			want:      1.0,
		},
		{
			name:      "mean predictor",
			actual:    []float64{1, 2, 3},
			predicted: []float64{2, 2, 2},
			want:      0.0,
		},
		{
			name:      "no variance in actual",
			actual:    []float64{5, 5, 5},
			predicted: []float64{5, 5, 5},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := mat.NewVecDense(len(tt.actual), tt.actual)
			predicted := mat.NewVecDense(len(tt.predicted), tt.predicted)
			got, err := R2Score(actual, predicted)
			if (err != nil) != tt.wantErr {
				t.Errorf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAICBIC(t *testing.T) {
	// Hand-computed from the Gaussian log-likelihood:
	// ll = -n/2 * (ln(2*pi) + ln(rss/n) + 1).
	rss := 10.0
	n := 20
	k := 3

	fn := float64(n)
	ll := -0.5 * fn * (math.Log(2*math.Pi) + math.Log(rss/fn) + 1)

	aic, err := AIC(rss, n, k)
	if err != nil {
		t.Fatalf("AIC() error = %v", err)
	}
	if want := -2*ll + 2*float64(k+1); math.Abs(aic-want) > 1e-9 {
		t.Errorf("AIC() = %v, want %v", aic, want)
	}

	bic, err := BIC(rss, n, k)
	if err != nil {
		t.Fatalf("BIC() error = %v", err)
	}
	if want := -2*ll + math.Log(fn)*float64(k+1); math.Abs(bic-want) > 1e-9 {
		t.Errorf("BIC() = %v, want %v", bic, want)
	}

	// BIC penalizes harder than AIC once ln(n) > 2.
	if bic <= aic {
		t.Errorf("BIC %v should exceed AIC %v for n=20", bic, aic)
	}
}

func TestAICMonotoneInRSS(t *testing.T) {
	a1, err := AIC(10, 50, 4)
	if err != nil {
		t.Fatalf("AIC() error = %v", err)
	}
	a2, err := AIC(20, 50, 4)
	if err != nil {
		t.Fatalf("AIC() error = %v", err)
	}
	if a1 >= a2 {
		t.Errorf("AIC should grow with RSS: %v >= %v", a1, a2)
	}
}

func TestAICInvalidArgs(t *testing.T) {
	if _, err := AIC(0, 10, 2); err == nil {
		t.Error("AIC(rss=0) expected error")
	}
	if _, err := BIC(5, 0, 2); err == nil {
		t.Error("BIC(n=0) expected error")
	}
}
