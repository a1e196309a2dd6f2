package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DecodeTimeSeries converts a PI_JSON document into a merged dataset.
//
// Each series with events becomes one variable named by its sanitized
// parameterId. Values that do not parse or equal the series' missing value
// become NaN. A malformed event date/time aborts the conversion with an error
// wrapping ErrInvalidArgument; missing metadata never does.
func DecodeTimeSeries(doc Document) (*Dataset, error) {
	parts := make([]*Dataset, 0, len(doc.TimeSeries))
	for i, s := range doc.TimeSeries {
		if len(s.Events) == 0 {
			continue
		}
		part, err := decodeSeries(s)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		parts = append(parts, part)
	}
	return Merge(parts), nil
}

// decodeSeries builds a single-variable dataset from one series.
func decodeSeries(s Series) (*Dataset, error) {
	missing := missingValue(s.Header)
	clean := sanitizeHeader(s.Header)

	times := make([]time.Time, len(s.Events))
	values := make(Values, len(s.Events))
	var flags Values

	for i, ev := range s.Events {
		t, err := parseEventTime(ev.Date, ev.Time)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		times[i] = t
		values[i] = parseEventValue(ev.Value, missing)

		if ev.Flag != nil {
			if flags == nil {
				flags = nanValues(len(s.Events))
			}
			flags[i] = parseNumber(string(*ev.Flag))
		}
	}

	return &Dataset{
		Time: times,
		Variables: []Variable{{
			Name:   variableName(clean),
			Values: values,
			Flag:   flags,
			Attrs:  seriesAttrs(s.Header, clean),
		}},
	}, nil
}

// parseEventValue parses an event value, mapping unparseable input and the
// missing value sentinel to NaN.
func parseEventValue(v Text, missing float64) float64 {
	f := parseNumber(string(v))
	if f == missing {
		return math.NaN()
	}
	return f
}

// DatasetObserver records what a decode produced: series turned into
// variables, series dropped for having no events, and missing values.
type DatasetObserver interface {
	ObserveDataset(decoded, skipped, missing int)
}

// FetchDataset fetches a document from src, decodes it, and reports the
// decode to obs when obs is not nil.
func FetchDataset(ctx context.Context, src TimeSeriesSource, q TimeSeriesQuery, obs DatasetObserver) (*Dataset, error) {
	doc, err := src.FetchTimeSeries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch time series: %w", err)
	}
	ds, err := DecodeTimeSeries(doc)
	if err != nil {
		return nil, fmt.Errorf("decode time series: %w", err)
	}
	if obs != nil {
		skipped := doc.EmptySeries()
		obs.ObserveDataset(len(doc.TimeSeries)-skipped, skipped, ds.MissingValues())
	}
	return ds, nil
}
