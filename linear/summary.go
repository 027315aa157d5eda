package linear

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/beanlab/cupping/metrics"
	"github.com/beanlab/cupping/pkg/errors"
)

// Coefficient is one row of a regression summary table.
type Coefficient struct {
	Name     string
	Estimate float64
	StdError float64
	TValue   float64
	PValue   float64
}

// Summary holds the inferential statistics of a fitted OLS model, the same
// quantities a regression summary table reports.
type Summary struct {
	Coefficients []Coefficient

	NumObs    int
	NumParams int // design columns including the intercept
	DFResid   int

	RSS        float64
	ResidSE    float64 // sqrt(RSS / DFResid)
	R2         float64
	AdjustedR2 float64

	FStat   float64
	FPValue float64

	AIC float64
	BIC float64
}

// computeSummary derives the full summary from a solved fit. xtxInv is the
// inverse of X'X from the normal equations; its diagonal scaled by the
// residual variance gives the squared standard errors.
func computeSummary(names []string, X *mat.Dense, y, coef *mat.VecDense, xtxInv *mat.Dense) (*Summary, error) {
	n, k := X.Dims()
	dfResid := n - k

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(X, coef)

	resid, err := metrics.Residuals(y, fitted)
	if err != nil {
		return nil, err
	}
	rss := mat.Dot(resid, resid)
	if rss <= 0 {
		return nil, errors.NewConfigError("computeSummary", "rss",
			"residual sum of squares must be positive for inference", rss)
	}

	sigma2 := rss / float64(dfResid)

	r2, err := metrics.R2Score(y, fitted)
	if err != nil {
		return nil, err
	}
	adjR2 := 1 - (1-r2)*float64(n-1)/float64(dfResid)

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dfResid)}
	coefs := make([]Coefficient, k)
	for j := 0; j < k; j++ {
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		est := coef.AtVec(j)
		tval := est / se
		coefs[j] = Coefficient{
			Name:     names[j],
			Estimate: est,
			StdError: se,
			TValue:   tval,
			PValue:   2 * tDist.Survival(math.Abs(tval)),
		}
	}

	// Overall F test against the intercept-only model; undefined when the
	// model has no slope terms.
	fStat := math.NaN()
	fPValue := math.NaN()
	if k > 1 {
		fStat = (r2 / float64(k-1)) / ((1 - r2) / float64(dfResid))
		fDist := distuv.F{D1: float64(k - 1), D2: float64(dfResid)}
		fPValue = fDist.Survival(fStat)
	}

	aic, err := metrics.AIC(rss, n, k)
	if err != nil {
		return nil, err
	}
	bic, err := metrics.BIC(rss, n, k)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Coefficients: coefs,
		NumObs:       n,
		NumParams:    k,
		DFResid:      dfResid,
		RSS:          rss,
		ResidSE:      math.Sqrt(sigma2),
		R2:           r2,
		AdjustedR2:   adjR2,
		FStat:        fStat,
		FPValue:      fPValue,
		AIC:          aic,
		BIC:          bic,
	}, nil
}

// String renders the summary as a plain-text table.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-32s %12s %12s %9s %10s\n", "", "Estimate", "Std. Error", "t value", "Pr(>|t|)")
	for _, c := range s.Coefficients {
		fmt.Fprintf(&b, "%-32s %12.5f %12.5f %9.3f %10.4g\n",
			c.Name, c.Estimate, c.StdError, c.TValue, c.PValue)
	}
	fmt.Fprintf(&b, "\nResidual standard error: %.4f on %d degrees of freedom\n", s.ResidSE, s.DFResid)
	fmt.Fprintf(&b, "Multiple R-squared: %.4f, Adjusted R-squared: %.4f\n", s.R2, s.AdjustedR2)
	if !math.IsNaN(s.FStat) {
		fmt.Fprintf(&b, "F-statistic: %.2f on %d and %d DF, p-value: %.4g\n",
			s.FStat, s.NumParams-1, s.DFResid, s.FPValue)
	}
	fmt.Fprintf(&b, "AIC: %.2f, BIC: %.2f\n", s.AIC, s.BIC)
	return b.String()
}
