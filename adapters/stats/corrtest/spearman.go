package corrtest

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"riskcorr/domain/core"
)

// Spearman computes the rank correlation coefficient and its two-sided
// p-value. Ranks use tie-averaging, so the coefficient is the Pearson
// correlation of the rank vectors and stays exact in the presence of ties.
func Spearman(x, y []float64) (rho, p float64, err error) {
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

	rho = stat.Correlation(ranks(x), ranks(y), nil)
	rho = clampR(rho)
	p = twoSidedTPValue(rho, n)
	return rho, p, nil
}

// ranks converts values to 1-based ranks, averaging over tie groups.
func ranks(data []float64) []float64 {
	n := len(data)
	type pair struct {
		value float64
		index int
	}
	pairs := make([]pair, n)
	for i, v := range data {
		pairs[i] = pair{value: v, index: i}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	out := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}
		avgRank := float64(i+1) + float64(j-i-1)/2.0
		for k := i; k < j; k++ {
			out[pairs[k].index] = avgRank
		}
		i = j
	}
	return out
}
