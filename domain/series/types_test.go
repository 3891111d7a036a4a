package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	ny := time.FixedZone("UTC-5", -5*3600)
	stamp := time.Date(2024, 3, 15, 22, 30, 0, 0, ny)

	got := Day(stamp)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), got,
		"truncation happens on the UTC calendar")
	assert.Equal(t, time.UTC, got.Location())
}

func TestValidate(t *testing.T) {
	v := 1.0
	ok := TimeSeries{Variable: "a", Observations: []Observation{
		{Date: Day(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), Value: &v},
		{Date: Day(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), Value: &v},
	}}
	assert.NoError(t, ok.Validate())

	dup := TimeSeries{Variable: "a", Observations: []Observation{
		{Date: Day(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), Value: &v},
		{Date: Day(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), Value: &v},
	}}
	assert.Error(t, dup.Validate())

	backwards := TimeSeries{Variable: "a", Observations: []Observation{
		{Date: Day(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), Value: &v},
		{Date: Day(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), Value: &v},
	}}
	assert.Error(t, backwards.Validate())
}

func TestCompact(t *testing.T) {
	v1, v3 := 1.5, 3.5
	ts := TimeSeries{Variable: "a", Observations: []Observation{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: &v1},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: &v3},
	}}

	dates, values := ts.Compact()
	require.Len(t, dates, 2)
	assert.Equal(t, []float64{1.5, 3.5}, values)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), dates[1])
}
