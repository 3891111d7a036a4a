package stationarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Augmented Dickey-Fuller unit-root test, constant term, no trend.
// Null hypothesis: the series has a unit root (non-stationary).
// Rejecting the null at the configured significance level means the series is
// treated as stationary.

const (
	// MinSamples is the shortest series the regression can be fit on.
	MinSamples = 8

	// DefaultAlpha is the significance level for the unit-root decision.
	DefaultAlpha = 0.05
)

var (
	ErrSeriesTooShort = errors.New("series too short for unit-root test")
	ErrDegenerate     = errors.New("degenerate regression in unit-root test")
)

// Result carries the test statistic and decision for one series.
type Result struct {
	Statistic  float64 `json:"statistic"`
	PValue     float64 `json:"p_value"`
	Lags       int     `json:"lags"`
	SampleSize int     `json:"sample_size"`
	Stationary bool    `json:"stationary"`
}

// ADF runs the test on x at the given significance level.
//
// Lag order follows the Schwert-style rule floor(cbrt(n-1)), shrunk when the
// regression would be left with too few degrees of freedom.
func ADF(x []float64, alpha float64) (Result, error) {
	n := len(x)
	if n < MinSamples {
		return Result{}, fmt.Errorf("%w: n=%d", ErrSeriesTooShort, n)
	}

	lags := int(math.Cbrt(float64(n - 1)))
	for lags > 0 && (n-1-lags) < 4*(lags+2) {
		lags--
	}

	// First differences; dx[t] = x[t+1] - x[t]
	dx := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		dx[i] = x[i+1] - x[i]
	}

	// Regression: dx[t] = a + b*x[t] + sum_i c_i*dx[t-i] + e
	rows := (n - 1) - lags
	cols := lags + 2
	if rows <= cols {
		return Result{}, fmt.Errorf("%w: %d rows for %d coefficients", ErrDegenerate, rows, cols)
	}

	design := mat.NewDense(rows, cols, nil)
	response := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		t := r + lags
		design.Set(r, 0, 1.0)
		design.Set(r, 1, x[t])
		for i := 1; i <= lags; i++ {
			design.Set(r, 1+i, dx[t-i])
		}
		response.Set(r, 0, dx[t])
	}

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, response); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	// Residual variance
	var fitted mat.Dense
	fitted.Mul(design, &beta)
	rss := 0.0
	for r := 0; r < rows; r++ {
		resid := response.At(r, 0) - fitted.At(r, 0)
		rss += resid * resid
	}
	sigma2 := rss / float64(rows-cols)

	// Standard error of the level coefficient via (X'X)^-1
	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	se := math.Sqrt(sigma2 * inv.At(1, 1))
	if se == 0 || math.IsNaN(se) || math.IsInf(se, 0) {
		return Result{}, fmt.Errorf("%w: zero standard error", ErrDegenerate)
	}

	tau := beta.At(1, 0) / se
	p := mackinnonPValue(tau, rows)

	return Result{
		Statistic:  tau,
		PValue:     p,
		Lags:       lags,
		SampleSize: rows,
		Stationary: p < alpha,
	}, nil
}

// MacKinnon (2010) response-surface critical values for the constant,
// no-trend case: crit = b0 + b1/T + b2/T^2.
var mackinnonSurface = []struct {
	level      float64
	b0, b1, b2 float64
}{
	{0.01, -3.43035, -6.5393, -16.786},
	{0.05, -2.86154, -2.8903, -4.234},
	{0.10, -2.56677, -1.5384, -2.809},
}

func mackinnonCrit(idx, sampleSize int) float64 {
	s := mackinnonSurface[idx]
	t := float64(sampleSize)
	return s.b0 + s.b1/t + s.b2/(t*t)
}

// mackinnonPValue maps a tau statistic to an approximate p-value by monotone
// interpolation between the 1%/5%/10% critical values, clamped to
// [0.001, 0.999]. The engine only needs the 0.05 decision plus a diagnostic
// number, so this precision is sufficient.
func mackinnonPValue(tau float64, sampleSize int) float64 {
	c1 := mackinnonCrit(0, sampleSize)
	c5 := mackinnonCrit(1, sampleSize)
	c10 := mackinnonCrit(2, sampleSize)

	switch {
	case tau <= c1:
		// Extrapolate below the 1% point with the 1%-5% slope.
		slope := (0.05 - 0.01) / (c5 - c1)
		return clampP(0.01 + slope*(tau-c1))
	case tau <= c5:
		frac := (tau - c1) / (c5 - c1)
		return clampP(0.01 + frac*(0.05-0.01))
	case tau <= c10:
		frac := (tau - c5) / (c10 - c5)
		return clampP(0.05 + frac*(0.10-0.05))
	default:
		slope := (0.10 - 0.05) / (c10 - c5)
		return clampP(0.10 + slope*(tau-c10))
	}
}

func clampP(p float64) float64 {
	if p < 0.001 {
		return 0.001
	}
	if p > 0.999 {
		return 0.999
	}
	return p
}
