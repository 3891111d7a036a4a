package stationarity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskcorr/internal/testkit"
)

func seriesValues(t *testing.T, n int) []float64 {
	t.Helper()
	_, vals := testkit.Oscillating("osc", n).Compact()
	return vals
}

func TestAnalyze_StationarySeriesKeptRaw(t *testing.T) {
	p := NewPreprocessor()
	d := p.Analyze(ar1(200, 0.3, 2))

	assert.Equal(t, 0, d.Order)
	assert.True(t, d.Stationary)
	require.Len(t, d.Tests, 1)
	assert.True(t, d.Tests[0].Stationary)
}

func TestAnalyze_OscillatingSeriesKeptRaw(t *testing.T) {
	p := NewPreprocessor()
	d := p.Analyze(seriesValues(t, 120))

	assert.Equal(t, 0, d.Order)
	assert.True(t, d.Stationary)
}

func TestAnalyze_TrendingDifferencedOnce(t *testing.T) {
	p := NewPreprocessor()
	_, vals := testkit.Trending("trend", 120, 11).Compact()
	d := p.Analyze(vals)

	assert.Equal(t, 1, d.Order)
	assert.True(t, d.Stationary)
	require.Len(t, d.Tests, 2)
	assert.False(t, d.Tests[0].Stationary)
	assert.True(t, d.Tests[1].Stationary)
}

func TestAnalyze_CubicTrendExhaustsMaxOrder(t *testing.T) {
	// t^3 plus noise stays drift-dominated even after two rounds of
	// differencing, so the preprocessor gives up and flags the series.
	rng := rand.New(rand.NewSource(3))
	x := make([]float64, 120)
	for i := range x {
		ti := float64(i)
		x[i] = ti*ti*ti + rng.NormFloat64()
	}

	p := NewPreprocessor()
	d := p.Analyze(x)

	assert.Equal(t, MaxDifferencingOrder, d.Order)
	assert.False(t, d.Stationary)
}

func TestAnalyze_TooShortPassesThrough(t *testing.T) {
	p := NewPreprocessor()
	d := p.Analyze([]float64{1, 5, 2, 4, 3})

	assert.Equal(t, 0, d.Order)
	assert.True(t, d.Stationary)
	assert.Empty(t, d.Tests)
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []float64{1, 2, -3}, Difference([]float64{0, 1, 3, 0}))
	assert.Nil(t, Difference([]float64{5}))
}

func TestApplyOrder(t *testing.T) {
	x := []float64{0, 1, 4, 9, 16}

	assert.Equal(t, x, ApplyOrder(x, 0))
	assert.Equal(t, []float64{1, 3, 5, 7}, ApplyOrder(x, 1))
	assert.Equal(t, []float64{2, 2, 2}, ApplyOrder(x, 2))
}

func TestTruncateToMatch_KeepsSuffixes(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{10, 20, 30}

	gx, gy, truncated := TruncateToMatch(x, y)
	assert.True(t, truncated)
	assert.Equal(t, []float64{3, 4, 5}, gx, "the most recent observations survive")
	assert.Equal(t, []float64{10, 20, 30}, gy)

	gx, gy, truncated = TruncateToMatch(y, x)
	assert.True(t, truncated)
	assert.Equal(t, []float64{10, 20, 30}, gx)
	assert.Equal(t, []float64{3, 4, 5}, gy)
}

func TestTruncateToMatch_EqualLengths(t *testing.T) {
	x := []float64{1, 2}
	y := []float64{3, 4}

	gx, gy, truncated := TruncateToMatch(x, y)
	assert.False(t, truncated)
	assert.Equal(t, x, gx)
	assert.Equal(t, y, gy)
}
