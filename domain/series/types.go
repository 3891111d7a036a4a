package series

import (
	"fmt"
	"time"

	"riskcorr/domain/core"
)

// Category classifies the semantic kind of a variable
type Category string

const (
	CategoryEntityRisk        Category = "entity-risk"
	CategoryEconomicIndicator Category = "economic-indicator"
	CategoryEventCount        Category = "event-count"
)

// Variable describes one analyzable quantity. Immutable, caller-supplied;
// the engine never persists variables.
type Variable struct {
	Key      core.VariableKey `json:"key"`
	Category Category         `json:"category"`
	Label    string           `json:"label"`
}

// Observation is one (date, value) point. A nil Value marks a date where the
// source had no usable number; such dates are dropped before alignment, never
// imputed.
type Observation struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// TimeSeries is the ordered observation sequence for one variable over a
// window. Dates are unique and strictly increasing.
type TimeSeries struct {
	Variable     core.VariableKey `json:"variable"`
	Observations []Observation    `json:"observations"`
}

// Day truncates a timestamp to its UTC calendar day, the grain all series
// share.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the strictly-increasing unique-date invariant.
func (ts TimeSeries) Validate() error {
	for i := 1; i < len(ts.Observations); i++ {
		prev := ts.Observations[i-1].Date
		cur := ts.Observations[i].Date
		if !cur.After(prev) {
			return fmt.Errorf("series %s: dates not strictly increasing at index %d (%s >= %s)",
				ts.Variable, i, prev.Format("2006-01-02"), cur.Format("2006-01-02"))
		}
	}
	return nil
}

// Compact returns the dates and values of all non-missing observations,
// preserving order.
func (ts TimeSeries) Compact() ([]time.Time, []float64) {
	dates := make([]time.Time, 0, len(ts.Observations))
	values := make([]float64, 0, len(ts.Observations))
	for _, obs := range ts.Observations {
		if obs.Value == nil {
			continue
		}
		dates = append(dates, Day(obs.Date))
		values = append(values, *obs.Value)
	}
	return dates, values
}

// AlignedPair holds two equal-length value vectors joined on calendar date.
// Index i refers to the same date in both vectors.
type AlignedPair struct {
	Dates []time.Time
	X     []float64
	Y     []float64
}

// Len returns the number of aligned observations.
func (p AlignedPair) Len() int {
	return len(p.Dates)
}
