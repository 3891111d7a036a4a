package temporal

import (
	"sort"
	"time"

	"riskcorr/domain/core"
	"riskcorr/domain/series"
)

// MinOverlap is the smallest aligned sample a pair may have and still be
// testable. Below this a correlation coefficient is meaningless.
const MinOverlap = 3

// OverlapError reports a pair whose date join produced too few observations.
// It carries the actual overlap count for diagnostics.
type OverlapError struct {
	VarX, VarY core.VariableKey
	Overlap    int
}

func (e *OverlapError) Error() string {
	return core.NewOverlapError(e.VarX, e.VarY, e.Overlap).Error()
}

func (e *OverlapError) Unwrap() error {
	return core.ErrInsufficientOverlap
}

// Align inner-joins two series on calendar date, retaining only dates with a
// non-missing value on both sides, sorted ascending. Pure function, no side
// effects.
func Align(a, b series.TimeSeries) (*series.AlignedPair, error) {
	datesA, valuesA := a.Compact()
	datesB, valuesB := b.Compact()

	byDate := make(map[time.Time]float64, len(datesB))
	for i, d := range datesB {
		byDate[d] = valuesB[i]
	}

	pair := &series.AlignedPair{}
	for i, d := range datesA {
		vb, ok := byDate[d]
		if !ok {
			continue
		}
		pair.Dates = append(pair.Dates, d)
		pair.X = append(pair.X, valuesA[i])
		pair.Y = append(pair.Y, vb)
	}

	// Compact preserves each source's order but the join must guarantee
	// ascending dates regardless of input ordering.
	sort.Sort(byDateOrder{pair})

	if pair.Len() < MinOverlap {
		return nil, &OverlapError{VarX: a.Variable, VarY: b.Variable, Overlap: pair.Len()}
	}
	return pair, nil
}

// byDateOrder sorts an AlignedPair's three parallel slices by date.
type byDateOrder struct {
	p *series.AlignedPair
}

func (s byDateOrder) Len() int { return s.p.Len() }

func (s byDateOrder) Less(i, j int) bool { return s.p.Dates[i].Before(s.p.Dates[j]) }

func (s byDateOrder) Swap(i, j int) {
	s.p.Dates[i], s.p.Dates[j] = s.p.Dates[j], s.p.Dates[i]
	s.p.X[i], s.p.X[j] = s.p.X[j], s.p.X[i]
	s.p.Y[i], s.p.Y[j] = s.p.Y[j], s.p.Y[i]
}

// DailyCounts resamples raw event timestamps into a dense daily count series
// over [start, end]. Days with no events count as zero, which is an observed
// value for an event-count variable, not missing data.
func DailyCounts(key core.VariableKey, events []time.Time, start, end time.Time) series.TimeSeries {
	counts := make(map[time.Time]float64)
	for _, ev := range events {
		d := series.Day(ev)
		if d.Before(series.Day(start)) || d.After(series.Day(end)) {
			continue
		}
		counts[d]++
	}

	ts := series.TimeSeries{Variable: key}
	for d := series.Day(start); !d.After(series.Day(end)); d = d.AddDate(0, 0, 1) {
		v := counts[d]
		value := v
		ts.Observations = append(ts.Observations, series.Observation{Date: d, Value: &value})
	}
	return ts
}
