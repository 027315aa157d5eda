package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/beanlab/cupping/pkg/errors"
)

// Residuals computes actual - predicted elementwise.
func Residuals(actual, predicted *mat.VecDense) (*mat.VecDense, error) {
	n := actual.Len()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Residuals")
	}
	if predicted.Len() != n {
		return nil, errors.NewConfigError("Residuals", "predicted", "length must match actual", predicted.Len())
	}

	res := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		res.SetVec(i, actual.AtVec(i)-predicted.AtVec(i))
	}
	return res, nil
}

// MSE computes the mean squared error.
func MSE(actual, predicted *mat.VecDense) (float64, error) {
	res, err := Residuals(actual, predicted)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < res.Len(); i++ {
		r := res.AtVec(i)
		sum += r * r
	}
	return sum / float64(res.Len()), nil
}

// R2Score computes the coefficient of determination, 1 - RSS/TSS.
func R2Score(actual, predicted *mat.VecDense) (float64, error) {
	n := actual.Len()
	if n == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "R2Score")
	}
	if predicted.Len() != n {
		return 0, errors.NewConfigError("R2Score", "predicted", "length must match actual", predicted.Len())
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += actual.AtVec(i)
	}
	mean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		y := actual.AtVec(i)
		diff := y - predicted.AtVec(i)
		tss += (y - mean) * (y - mean)
		rss += diff * diff
	}

	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in actual)")
	}
	return 1 - rss/tss, nil
}

// AIC computes the Akaike information criterion of a Gaussian model from
// its residual sum of squares. k counts the estimated coefficients
// including the intercept; the error variance adds one more parameter,
// matching R's AIC() on lm fits. Lower is better.
func AIC(rss float64, n, k int) (float64, error) {
	ll, err := gaussianLogLik(rss, n)
	if err != nil {
		return 0, errors.Wrap(err, "AIC")
	}
	return -2*ll + 2*float64(k+1), nil
}

// BIC computes the Bayesian information criterion under the same
// parameter-counting convention as AIC. Lower is better.
func BIC(rss float64, n, k int) (float64, error) {
	ll, err := gaussianLogLik(rss, n)
	if err != nil {
		return 0, errors.Wrap(err, "BIC")
	}
	return -2*ll + math.Log(float64(n))*float64(k+1), nil
}

// gaussianLogLik is the maximized log-likelihood of an OLS fit:
// -n/2 * (ln(2*pi) + ln(RSS/n) + 1).
func gaussianLogLik(rss float64, n int) (float64, error) {
	if n <= 0 {
		return 0, errors.NewConfigError("gaussianLogLik", "n", "must be positive", n)
	}
	if rss <= 0 {
		return 0, errors.NewConfigError("gaussianLogLik", "rss", "must be positive", rss)
	}
	fn := float64(n)
	return -0.5 * fn * (math.Log(2*math.Pi) + math.Log(rss/fn) + 1), nil
}
