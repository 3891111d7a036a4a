package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"riskcorr/domain/core"
	"riskcorr/domain/series"
	"riskcorr/ports"
)

// Deterministic synthetic series for tests. Everything here is either purely
// deterministic or driven by an explicit seed, so tests never flake.

// DefaultStart anchors synthetic windows at a fixed, known date.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Daily builds a dense daily series from a value function.
func Daily(key core.VariableKey, start time.Time, n int, f func(i int) float64) series.TimeSeries {
	ts := series.TimeSeries{Variable: key}
	for i := 0; i < n; i++ {
		v := f(i)
		ts.Observations = append(ts.Observations, series.Observation{
			Date:  series.Day(start.AddDate(0, 0, i)),
			Value: &v,
		})
	}
	return ts
}

// Oscillating returns a strongly mean-reverting deterministic series. Its
// unit-root test rejects decisively, so it never gets differenced.
func Oscillating(key core.VariableKey, n int) series.TimeSeries {
	return Daily(key, DefaultStart, n, func(i int) float64 {
		return math.Sin(0.3*float64(i)) + 0.2*math.Sin(1.1*float64(i))
	})
}

// CoMoving returns a second series tracking base with a deterministic
// perturbation of the given amplitude. Small amplitudes give |r| near 1;
// larger ones push |r| down without losing significance.
func CoMoving(key core.VariableKey, base series.TimeSeries, amplitude float64) series.TimeSeries {
	ts := series.TimeSeries{Variable: key}
	for i, obs := range base.Observations {
		v := *obs.Value + amplitude*math.Sin(7.13*float64(i)+0.5)
		ts.Observations = append(ts.Observations, series.Observation{Date: obs.Date, Value: &v})
	}
	return ts
}

// Constant returns a zero-variance series.
func Constant(key core.VariableKey, n int, value float64) series.TimeSeries {
	return Daily(key, DefaultStart, n, func(int) float64 { return value })
}

// Trending returns a seeded upward-trending series that fails the unit-root
// test until differenced. The noise keeps the regression well conditioned.
func Trending(key core.VariableKey, n int, seed int64) series.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	return Daily(key, DefaultStart, n, func(i int) float64 {
		return float64(i) + rng.NormFloat64()
	})
}

// Noisy returns a seeded gaussian-ish noise series.
func Noisy(key core.VariableKey, n int, seed int64) series.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	return Daily(key, DefaultStart, n, func(int) float64 {
		return rng.NormFloat64()
	})
}

// Alias re-labels a series under a different variable key, keeping values.
func Alias(key core.VariableKey, base series.TimeSeries) series.TimeSeries {
	out := series.TimeSeries{Variable: key, Observations: base.Observations}
	return out
}

// MemorySource is an in-memory SeriesSource for orchestration tests.
type MemorySource struct {
	Series     map[core.VariableKey]series.TimeSeries
	fetchCalls atomic.Int64

	// BlockUntilCancel makes every fetch wait for context cancellation,
	// for timeout tests.
	BlockUntilCancel bool
}

// FetchCalls reports how many fetches were issued; fetches run concurrently.
func (m *MemorySource) FetchCalls() int {
	return int(m.fetchCalls.Load())
}

// NewMemorySource builds a source from a set of series.
func NewMemorySource(all ...series.TimeSeries) *MemorySource {
	m := &MemorySource{Series: make(map[core.VariableKey]series.TimeSeries, len(all))}
	for _, ts := range all {
		m.Series[ts.Variable] = ts
	}
	return m
}

// FetchSeries implements the SeriesSource port.
func (m *MemorySource) FetchSeries(ctx context.Context, key core.VariableKey, start, end time.Time) (series.TimeSeries, error) {
	m.fetchCalls.Add(1)
	if m.BlockUntilCancel {
		<-ctx.Done()
		return series.TimeSeries{}, ctx.Err()
	}

	full, ok := m.Series[key]
	if !ok {
		return series.TimeSeries{}, fmt.Errorf("%w: %s", core.ErrDataUnavailable, key)
	}

	windowed := series.TimeSeries{Variable: key}
	lo, hi := series.Day(start), series.Day(end)
	for _, obs := range full.Observations {
		d := series.Day(obs.Date)
		if d.Before(lo) || d.After(hi) {
			continue
		}
		windowed.Observations = append(windowed.Observations, obs)
	}
	if len(windowed.Observations) == 0 {
		return series.TimeSeries{}, fmt.Errorf("%w: %s", core.ErrNoObservations, key)
	}
	return windowed, nil
}

var _ ports.SeriesSource = (*MemorySource)(nil)
