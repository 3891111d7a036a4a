package ports

import (
	"context"
	"time"

	"riskcorr/domain/core"
	"riskcorr/domain/series"
)

// SeriesSource supplies the ordered time series for one variable over a date
// window. Implementations own storage and caching; the engine treats a
// returned series as transient request-scoped data.
//
// An error from FetchSeries fails the whole analysis request: silently
// omitting a variable would change which pairs get tested and which
// Bonferroni divisor applies.
type SeriesSource interface {
	FetchSeries(ctx context.Context, key core.VariableKey, start, end time.Time) (series.TimeSeries, error)
}
