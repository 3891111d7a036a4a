package stationarity

import (
	"errors"
)

// MaxDifferencingOrder bounds how many times a series is differenced before
// the engine gives up and proceeds with a warning. Over-differencing destroys
// signal, so rigid rejection would make short windows unusable.
const MaxDifferencingOrder = 2

// Decision is the per-variable stationarity verdict. It is computed once per
// variable per request and reused across every pair that variable appears in,
// so repeated pairs see a consistent differencing order.
type Decision struct {
	Order      int      `json:"order"`
	Stationary bool     `json:"stationary"`
	Tests      []Result `json:"tests"`
}

// Preprocessor tests series for stationarity and decides a differencing order.
type Preprocessor struct {
	Alpha    float64
	MaxOrder int
}

// NewPreprocessor returns a preprocessor with the standard 0.05 level and
// maximum order.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{Alpha: DefaultAlpha, MaxOrder: MaxDifferencingOrder}
}

// Analyze tests x, differencing and re-testing until stationary or the
// maximum order is reached. A series too short or too degenerate to test is
// passed through untransformed: the test cannot justify destroying what
// little signal exists, and downstream guards (overlap, constant-series)
// catch the pathological cases.
func (p *Preprocessor) Analyze(x []float64) Decision {
	d := Decision{}
	cur := x
	for order := 0; ; order++ {
		res, err := ADF(cur, p.Alpha)
		if err != nil {
			if errors.Is(err, ErrDegenerate) {
				// Differencing collapsed the series to (near-)constant;
				// degenerate but trivially non-trending.
				d.Order = order
				d.Stationary = true
				return d
			}
			// Too short to test: keep the raw values.
			d.Order = order
			d.Stationary = true
			return d
		}
		d.Tests = append(d.Tests, res)
		if res.Stationary {
			d.Order = order
			d.Stationary = true
			return d
		}
		if order == p.MaxOrder {
			d.Order = order
			d.Stationary = false
			return d
		}
		cur = Difference(cur)
	}
}

// Difference applies first-order differencing: out[i] = x[i+1] - x[i].
func Difference(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 0; i < len(x)-1; i++ {
		out[i] = x[i+1] - x[i]
	}
	return out
}

// ApplyOrder differences x the given number of times.
func ApplyOrder(x []float64, order int) []float64 {
	out := x
	for i := 0; i < order; i++ {
		out = Difference(out)
	}
	return out
}

// TruncateToMatch length-matches two differenced vectors by keeping the most
// recent observations (suffix alignment). Returns whether truncation was
// needed, i.e. the differencing orders of the pair differed.
func TruncateToMatch(x, y []float64) ([]float64, []float64, bool) {
	if len(x) == len(y) {
		return x, y, false
	}
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	return x[len(x)-n:], y[len(y)-n:], true
}
