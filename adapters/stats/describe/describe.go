package describe

import (
	"github.com/montanaflynn/stats"
)

// Summary holds the descriptive statistics of one series window, used for
// data-quality logging and diagnostics.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Series summarizes a value vector. Errors only on empty input.
func Series(values []float64) (Summary, error) {
	data := stats.Float64Data(values)

	mean, err := data.Mean()
	if err != nil {
		return Summary{}, err
	}
	sd, err := data.StandardDeviation()
	if err != nil {
		return Summary{}, err
	}
	min, err := data.Min()
	if err != nil {
		return Summary{}, err
	}
	max, err := data.Max()
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		N:      len(values),
		Mean:   mean,
		StdDev: sd,
		Min:    min,
		Max:    max,
	}, nil
}
