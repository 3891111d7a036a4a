package corrtest

import (
	"fmt"

	"riskcorr/domain/corr"
)

// Compute dispatches to the configured correlation method and returns the
// coefficient, its raw two-sided p-value and the sample size used.
func Compute(method corr.Method, x, y []float64) (r, p float64, n int, err error) {
	switch method {
	case corr.MethodPearson:
		r, p, err = Pearson(x, y)
	case corr.MethodSpearman:
		r, p, err = Spearman(x, y)
	default:
		return 0, 1, 0, fmt.Errorf("unsupported method %q", method)
	}
	return r, p, len(x), err
}
