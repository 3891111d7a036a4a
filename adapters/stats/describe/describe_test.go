package describe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries(t *testing.T) {
	sum, err := Series([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)

	assert.Equal(t, 8, sum.N)
	assert.InDelta(t, 5.0, sum.Mean, 1e-12)
	assert.InDelta(t, 2.0, sum.StdDev, 1e-12)
	assert.Equal(t, 2.0, sum.Min)
	assert.Equal(t, 9.0, sum.Max)
}

func TestSeries_Empty(t *testing.T) {
	_, err := Series(nil)
	assert.Error(t, err)
}
