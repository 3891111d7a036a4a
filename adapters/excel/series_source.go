package excel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"riskcorr/adapters/stats/temporal"
	"riskcorr/domain/core"
	"riskcorr/domain/series"
	"riskcorr/ports"
)

// SeriesSource reads variable series from an analyst workbook: one sheet per
// variable. A sheet with `date | value` columns is a value series; a sheet
// with only a `date` column is an event log, resampled to daily counts.
//
// The whole workbook is parsed at construction; FetchSeries then only slices
// the requested window. The engine's per-request cache lives in the
// assembler, so this adapter stays a plain lookup.
type SeriesSource struct {
	seriesByKey map[core.VariableKey]series.TimeSeries
	eventsByKey map[core.VariableKey][]time.Time
}

// NewSeriesSource opens and parses the workbook
func NewSeriesSource(path string) (*SeriesSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	src := &SeriesSource{
		seriesByKey: make(map[core.VariableKey]series.TimeSeries),
		eventsByKey: make(map[core.VariableKey][]time.Time),
	}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if err := src.parseSheet(sheet, rows); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}
	return src, nil
}

func (s *SeriesSource) parseSheet(sheet string, rows [][]string) error {
	if len(rows) < 2 {
		return fmt.Errorf("needs a header row and at least one data row")
	}

	header := rows[0]
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return fmt.Errorf("first column must be 'date', got %q", strings.Join(header, ","))
	}
	key := core.VariableKey(sheet)
	hasValues := len(header) >= 2 && strings.EqualFold(strings.TrimSpace(header[1]), "value")

	if !hasValues {
		// Event log: one timestamp per row.
		for i, row := range rows[1:] {
			d, err := parseDate(row[0])
			if err != nil {
				return fmt.Errorf("row %d: %w", i+2, err)
			}
			s.eventsByKey[key] = append(s.eventsByKey[key], d)
		}
		return nil
	}

	ts := series.TimeSeries{Variable: key}
	for i, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		d, err := parseDate(row[0])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		obs := series.Observation{Date: d}
		if len(row) >= 2 && strings.TrimSpace(row[1]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
			if err != nil {
				return fmt.Errorf("row %d: bad value %q: %w", i+2, row[1], err)
			}
			obs.Value = &v
		}
		ts.Observations = append(ts.Observations, obs)
	}
	if err := ts.Validate(); err != nil {
		return err
	}
	s.seriesByKey[key] = ts
	return nil
}

// FetchSeries implements the SeriesSource port.
func (s *SeriesSource) FetchSeries(_ context.Context, key core.VariableKey, start, end time.Time) (series.TimeSeries, error) {
	if events, ok := s.eventsByKey[key]; ok {
		return temporal.DailyCounts(key, events, start, end), nil
	}

	full, ok := s.seriesByKey[key]
	if !ok {
		return series.TimeSeries{}, fmt.Errorf("%w: no sheet for variable %s", core.ErrDataUnavailable, key)
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
		return series.TimeSeries{}, fmt.Errorf("%w: %s in requested window", core.ErrNoObservations, key)
	}
	return windowed, nil
}

var _ ports.SeriesSource = (*SeriesSource)(nil)

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "01-02-06", "1/2/2006", "2006-01-02 15:04:05"} {
		if d, err := time.Parse(layout, s); err == nil {
			return series.Day(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
