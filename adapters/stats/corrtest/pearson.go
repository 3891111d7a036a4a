package corrtest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"riskcorr/domain/core"
)

// Pearson computes the product-moment correlation coefficient and its
// two-sided t-distribution p-value for two equal-length vectors.
//
// Inputs are guaranteed finite and non-missing by the alignment and
// preprocessing contracts; this stage only guards the numeric edge cases that
// arise from the values themselves.
func Pearson(x, y []float64) (r, p float64, err error) {
	if len(x) != len(y) {
		return 0, 1, fmt.Errorf("length mismatch: %d vs %d", len(x), len(y))
	}
	n := len(x)
	if n < 3 {
		return 0, 1, core.NewOverlapError("", "", n)
	}
	if isConstant(x) || isConstant(y) {
		return 0, 1, core.ErrConstantSeries
	}

	r = stat.Correlation(x, y, nil)
	r = clampR(r)
	p = twoSidedTPValue(r, n)
	return r, p, nil
}

// twoSidedTPValue converts a correlation coefficient to its two-sided p-value
// via t = r*sqrt((n-2)/(1-r^2)) on n-2 degrees of freedom.
func twoSidedTPValue(r float64, n int) float64 {
	if math.Abs(r) >= 1 {
		// Infinite t statistic; p-value at its minimum.
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * dist.CDF(-math.Abs(t))
	if p > 1 {
		p = 1
	}
	return p
}

// clampR bounds a coefficient to [-1, 1] against floating point drift.
func clampR(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}

// isConstant checks for zero variance within floating tolerance.
func isConstant(values []float64) bool {
	if len(values) < 2 {
		return true
	}
	first := values[0]
	for _, v := range values[1:] {
		if math.Abs(v-first) > 1e-10 {
			return false
		}
	}
	return true
}
