package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"riskcorr/domain/core"
	"riskcorr/domain/series"
	"riskcorr/ports"
)

// seriesSource implements the SeriesSource port against the
// variable_observations table. NULL values surface as missing observations
// and are dropped by the engine before alignment.
type seriesSource struct {
	db *sqlx.DB
}

// NewSeriesSource creates a Postgres-backed series source
func NewSeriesSource(db *sqlx.DB) ports.SeriesSource {
	return &seriesSource{db: db}
}

// Open connects to Postgres and wraps the connection as a series source
func Open(url string) (ports.SeriesSource, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewSeriesSource(db), nil
}

// FetchSeries returns the ordered observations for one variable in [start, end].
func (s *seriesSource) FetchSeries(ctx context.Context, key core.VariableKey, start, end time.Time) (series.TimeSeries, error) {
	query := `SELECT obs_date, value
		FROM variable_observations
		WHERE variable_id = $1 AND obs_date >= $2 AND obs_date <= $3
		ORDER BY obs_date ASC`

	rows, err := s.db.QueryContext(ctx, query, key.String(), start, end)
	if err != nil {
		return series.TimeSeries{}, fmt.Errorf("failed to query observations for %s: %w", key, err)
	}
	defer rows.Close()

	ts := series.TimeSeries{Variable: key}
	for rows.Next() {
		var date time.Time
		var value sql.NullFloat64
		if err := rows.Scan(&date, &value); err != nil {
			return series.TimeSeries{}, fmt.Errorf("failed to scan observation for %s: %w", key, err)
		}
		obs := series.Observation{Date: series.Day(date)}
		if value.Valid {
			v := value.Float64
			obs.Value = &v
		}
		ts.Observations = append(ts.Observations, obs)
	}
	if err := rows.Err(); err != nil {
		return series.TimeSeries{}, fmt.Errorf("failed to read observations for %s: %w", key, err)
	}

	if len(ts.Observations) == 0 {
		return series.TimeSeries{}, fmt.Errorf("%w: %s", core.ErrNoObservations, key)
	}
	return ts, nil
}
