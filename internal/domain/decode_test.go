package domain

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDate      = "2025-03-14"
	testParameter = "P.obs.rate"
)

func loadTestDocument(t *testing.T) Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "timeseries_response.json"))
	require.NoError(t, err)
	doc, err := ParseDocument(data)
	require.NoError(t, err)
	return doc
}

func utc(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, time.UTC)
}

func event(clock, value string) Event {
	return Event{Date: testDate, Time: clock, Value: Text(value)}
}

func flagged(clock, value, flag string) Event {
	f := Text(flag)
	return Event{Date: testDate, Time: clock, Value: Text(value), Flag: &f}
}

func TestDecodeTimeSeries_EndToEnd(t *testing.T) {
	data := []byte(`{"timeSeries":[{"header":{"parameterId":"P.obs.rate","missVal":"-999.0"},"events":[{"date":"2025-03-14","time":"10:00:00","value":"1.23"},{"date":"2025-03-14","time":"10:05:00","value":"-999.0"}]}]}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	ds, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"P_obs_rate"}, ds.Names())
	require.Len(t, ds.Time, 2)
	assert.Equal(t, "2025-03-14T10:00:00Z", FormatTime(ds.Time[0]))
	assert.Equal(t, "2025-03-14T10:05:00Z", FormatTime(ds.Time[1]))

	v, ok := ds.Variable("P_obs_rate")
	require.True(t, ok)
	require.Len(t, v.Values, 2)
	assert.Equal(t, 1.23, v.Values[0])
	assert.True(t, math.IsNaN(v.Values[1]))
	assert.Nil(t, v.Flag)
}

func TestDecodeTimeSeries_ResponseFixture(t *testing.T) {
	ds, err := DecodeTimeSeries(loadTestDocument(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"H_obs", "P_obs_rate"}, ds.Names())
	assert.NotContains(t, ds.Names(), "H_obs_mouth", "series without events is dropped")

	require.Len(t, ds.Time, 42)
	assert.Equal(t, utc(10, 0), ds.Time[0])
	assert.Equal(t, utc(13, 25), ds.Time[len(ds.Time)-1])
	for i := 1; i < len(ds.Time); i++ {
		assert.True(t, ds.Time[i].After(ds.Time[i-1]), "time must be ascending at %d", i)
	}

	level, ok := ds.Variable("H_obs")
	require.True(t, ok)
	assert.InDelta(t, 1.2, level.Values[0], 1e-9)
	assert.True(t, math.IsNaN(level.Values[7]), "missVal sentinel")
	assert.True(t, math.IsNaN(level.Values[8]), "missVal sentinel")
	assert.InDelta(t, 1.61, level.Values[41], 1e-9)
	assert.Equal(t, "Amanzimtoti_River_level", level.Attrs[AttrLocationID])
	assert.Equal(t, "Amanzimtoti River level", level.Attrs[AttrStationName])
	assert.Equal(t, "Import_Rain", level.Attrs[AttrModuleInstanceID])
	assert.Equal(t, -30.0521, level.Attrs[AttrLat])
	assert.Equal(t, 2.5, level.Attrs[AttrZ])
	assert.Equal(t, "second", level.Attrs[AttrTimeStepUnit])
	assert.Equal(t, "300", level.Attrs[AttrTimeStepMultiplier])

	rain, ok := ds.Variable("P_obs_rate")
	require.True(t, ok)
	assert.Equal(t, 0.0, rain.Values[0])
	assert.True(t, math.IsNaN(rain.Values[1]), "no rain event at 10:05")
	assert.Equal(t, 0.25, rain.Values[3])
	assert.True(t, math.IsNaN(rain.Values[12]), "NaN literal in the payload")
	assert.Equal(t, 3.0, rain.Values[36])
	assert.Equal(t, "mm/hr", rain.Attrs[AttrUnits])
	assert.True(t, math.IsNaN(rain.Attrs.Float(AttrZ)))

	require.Len(t, level.Flag, 42)
	assert.Equal(t, 0.0, level.Flag[0])
	assert.Equal(t, 9.0, level.Flag[7])
	assert.Nil(t, rain.Flag, "rain events carry no flags")

	assert.Equal(t, 32, ds.MissingValues())
}

func TestDecodeTimeSeries_EmptySeriesDropped(t *testing.T) {
	doc := Document{TimeSeries: []Series{
		{Header: map[string]any{"parameterId": "Q.obs"}},
		{Header: map[string]any{"parameterId": "H.obs"}, Events: []Event{event("10:00:00", "1.0")}},
		{Header: map[string]any{"parameterId": "T.obs"}, Events: []Event{}},
	}}

	ds, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"H_obs"}, ds.Names())
	assert.Equal(t, []time.Time{utc(10, 0)}, ds.Time)
}

func TestDecodeTimeSeries_NoSeries(t *testing.T) {
	for name, doc := range map[string]Document{
		"nil":        {},
		"all empty":  {TimeSeries: []Series{{Header: map[string]any{"parameterId": "H.obs"}}}},
		"zero slice": {TimeSeries: []Series{}},
	} {
		t.Run(name, func(t *testing.T) {
			ds, err := DecodeTimeSeries(doc)
			require.NoError(t, err)
			assert.True(t, ds.IsEmpty())
			assert.Empty(t, ds.Time)
		})
	}
}

func TestDecodeTimeSeries_MissingValues(t *testing.T) {
	tests := []struct {
		name    string
		header  map[string]any
		value   string
		wantNaN bool
		want    float64
	}{
		{"default sentinel", map[string]any{}, "-999.0", true, 0},
		{"default sentinel integer form", map[string]any{}, "-999", true, 0},
		{"custom sentinel", map[string]any{"missVal": "-9999"}, "-9999.0", true, 0},
		{"default not applied under custom sentinel", map[string]any{"missVal": "-9999"}, "-999.0", false, -999},
		{"non-numeric placeholder", map[string]any{}, "n/a", true, 0},
		{"empty value", map[string]any{}, "", true, 0},
		{"zero stays zero", map[string]any{}, "0", false, 0},
		{"negative value", map[string]any{}, "-1.5", false, -1.5},
		{"NaN sentinel keeps real readings", map[string]any{"missVal": "NaN"}, "-999.0", false, -999},
		{"NaN sentinel still masks NaN", map[string]any{"missVal": "NaN"}, "NaN", true, 0},
		{"numeric sentinel", map[string]any{"missVal": -1.0}, "-1", true, 0},
		{"unparseable sentinel falls back", map[string]any{"missVal": "none"}, "-999.0", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Document{TimeSeries: []Series{{Header: tt.header, Events: []Event{event("10:00:00", tt.value)}}}}
			ds, err := DecodeTimeSeries(doc)
			require.NoError(t, err)

			got := ds.Variables[0].Values[0]
			if tt.wantNaN {
				assert.True(t, math.IsNaN(got), "got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTimeSeries_UnknownParameter(t *testing.T) {
	doc := Document{TimeSeries: []Series{{Events: []Event{event("10:00:00", "1")}}}}

	ds, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	assert.Equal(t, []string{UnknownVariable}, ds.Names())
	assert.Nil(t, ds.Variables[0].Attrs[AttrParameterID])
}

func TestDecodeTimeSeries_MalformedTimeIsFatal(t *testing.T) {
	doc := Document{TimeSeries: []Series{
		{Header: map[string]any{"parameterId": "H.obs"}, Events: []Event{event("10:00:00", "1")}},
		{Header: map[string]any{"parameterId": "Q.obs"}, Events: []Event{
			event("10:00:00", "1"),
			{Date: testDate, Time: "10:61:00", Value: "2"},
		}},
	}}

	ds, err := DecodeTimeSeries(doc)
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), "series 1")
	assert.Contains(t, err.Error(), "event 1")
}

func TestDecodeTimeSeries_Flags(t *testing.T) {
	t.Run("partial flags", func(t *testing.T) {
		doc := Document{TimeSeries: []Series{{
			Header: map[string]any{"parameterId": "H.obs"},
			Events: []Event{flagged("10:00:00", "1", "0"), event("10:05:00", "2"), flagged("10:10:00", "3", "x")},
		}}}

		ds, err := DecodeTimeSeries(doc)
		require.NoError(t, err)

		flags := ds.Variables[0].Flag
		require.Len(t, flags, 3)
		assert.Equal(t, 0.0, flags[0])
		assert.True(t, math.IsNaN(flags[1]))
		assert.True(t, math.IsNaN(flags[2]))
	})

	t.Run("flags stay with their variable", func(t *testing.T) {
		doc := Document{TimeSeries: []Series{
			{Header: map[string]any{"parameterId": "H.obs"}, Events: []Event{event("10:00:00", "1")}},
			{Header: map[string]any{"parameterId": "Q.obs"}, Events: []Event{flagged("10:05:00", "2", "2")}},
		}}

		ds, err := DecodeTimeSeries(doc)
		require.NoError(t, err)

		level, _ := ds.Variable("H_obs")
		assert.Nil(t, level.Flag)
		discharge, _ := ds.Variable("Q_obs")
		assert.Empty(t, cmp.Diff(Values{math.NaN(), 2}, discharge.Flag, cmpopts.EquateNaNs()))
	})

	t.Run("overlapping flagged series", func(t *testing.T) {
		doc := Document{TimeSeries: []Series{
			{Header: map[string]any{"parameterId": "H.obs"}, Events: []Event{flagged("10:00:00", "1", "0")}},
			{Header: map[string]any{"parameterId": "Q.obs"}, Events: []Event{flagged("10:00:00", "2", "9")}},
		}}

		ds, err := DecodeTimeSeries(doc)
		require.NoError(t, err)

		require.Equal(t, []string{"H_obs", "Q_obs"}, ds.Names())
		assert.Equal(t, Values{0}, ds.Variables[0].Flag)
		assert.Equal(t, Values{9}, ds.Variables[1].Flag)
	})
}

func TestDecodeTimeSeries_DisjointRanges(t *testing.T) {
	doc := Document{TimeSeries: []Series{
		{Header: map[string]any{"parameterId": "H.obs", "locationId": "A"}, Events: []Event{event("10:00:00", "1"), event("10:05:00", "2")}},
		{Header: map[string]any{"parameterId": "Q.obs", "locationId": "A"}, Events: []Event{event("11:00:00", "3"), event("11:05:00", "4")}},
	}}

	ds, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{utc(10, 0), utc(10, 5), utc(11, 0), utc(11, 5)}, ds.Time)
	assert.Equal(t, []string{"H_obs", "Q_obs"}, ds.Names())

	want := []Variable{
		{Name: "H_obs", Values: Values{1, 2, math.NaN(), math.NaN()}},
		{Name: "Q_obs", Values: Values{math.NaN(), math.NaN(), 3, 4}},
	}
	got := ds.Variables
	assert.Empty(t, cmp.Diff(want, got, cmpopts.EquateNaNs(), cmpopts.IgnoreFields(Variable{}, "Attrs")))
}

func TestDecodeTimeSeries_SameParameterDisjointRanges(t *testing.T) {
	doc := Document{TimeSeries: []Series{
		{Header: map[string]any{"parameterId": testParameter, "locationId": "A"}, Events: []Event{event("10:00:00", "1")}},
		{Header: map[string]any{"parameterId": testParameter, "locationId": "B"}, Events: []Event{event("12:00:00", "2")}},
	}}

	ds, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{utc(10, 0), utc(12, 0)}, ds.Time)
	require.Equal(t, []string{"P_obs_rate"}, ds.Names())
	assert.Equal(t, Values{1, 2}, ds.Variables[0].Values)
	assert.Equal(t, "A", ds.Variables[0].Attrs[AttrLocationID], "attributes come from the first series")
}

func TestDecodeTimeSeries_NumericPayloadFields(t *testing.T) {
	data := []byte(`{"timeSeries":[{"header":{"parameterId":"H.obs","missVal":-999},"events":[{"date":"2025-03-14","time":"10:00:00","value":1.5,"flag":0},{"date":"2025-03-14","time":"10:05:00","value":-999,"flag":null}]}]}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	ds, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	assert.Equal(t, 1.5, ds.Variables[0].Values[0])
	assert.True(t, math.IsNaN(ds.Variables[0].Values[1]))
	require.Len(t, ds.Variables[0].Flag, 2)
	assert.Equal(t, 0.0, ds.Variables[0].Flag[0])
}

func TestDecodeTimeSeries_NonScalarValue(t *testing.T) {
	data := []byte(`{"timeSeries":[
		{"header":{"parameterId":"H.obs"},"events":[{"date":"2025-03-14","time":"10:00:00","value":true},{"date":"2025-03-14","time":"10:05:00","value":{"v":1},"flag":[0]}]},
		{"header":{"parameterId":"Q.obs"},"events":[{"date":"2025-03-14","time":"10:00:00","value":"2.5"}]}
	]}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	ds, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	level, ok := ds.Variable("H_obs")
	require.True(t, ok)
	assert.True(t, math.IsNaN(level.Values[0]))
	assert.True(t, math.IsNaN(level.Values[1]))
	discharge, ok := ds.Variable("Q_obs")
	require.True(t, ok)
	assert.Equal(t, 2.5, discharge.Values[0])
}

func TestDecodeTimeSeries_DoesNotMutateInput(t *testing.T) {
	header := map[string]any{"parameterId": "H.obs", "timeStep": map[string]any{"unit": "min.ute"}}
	doc := Document{TimeSeries: []Series{{Header: header, Events: []Event{event("10:00:00", "1")}}}}

	_, err := DecodeTimeSeries(doc)
	require.NoError(t, err)

	assert.Equal(t, "H.obs", header["parameterId"])
	assert.Equal(t, "min.ute", header["timeStep"].(map[string]any)["unit"])
}

type stubSource struct {
	doc   Document
	err   error
	query TimeSeriesQuery
}

func (s *stubSource) FetchTimeSeries(_ context.Context, q TimeSeriesQuery) (Document, error) {
	s.query = q
	return s.doc, s.err
}

type recordingObserver struct {
	calls                     int
	decoded, skipped, missing int
}

func (o *recordingObserver) ObserveDataset(decoded, skipped, missing int) {
	o.calls++
	o.decoded, o.skipped, o.missing = decoded, skipped, missing
}

func TestFetchDataset(t *testing.T) {
	src := &stubSource{doc: loadTestDocument(t)}
	q := TimeSeriesQuery{ParameterIDs: []string{"H.obs"}}
	obs := &recordingObserver{}

	ds, err := FetchDataset(context.Background(), src, q, obs)
	require.NoError(t, err)
	assert.Equal(t, []string{"H.obs"}, src.query.ParameterIDs)
	assert.Len(t, ds.Variables, 2)
	assert.Equal(t, recordingObserver{calls: 1, decoded: 2, skipped: 1, missing: 32}, *obs)

	_, err = FetchDataset(context.Background(), src, q, nil)
	require.NoError(t, err, "observer is optional")
}

func TestFetchDataset_Errors(t *testing.T) {
	badDate := Document{TimeSeries: []Series{{Events: []Event{{Date: "14/03/2025", Time: "10:00:00", Value: "1"}}}}}

	tests := []struct {
		name    string
		src     *stubSource
		wantMsg string
	}{
		{"fetch", &stubSource{err: errors.New("boom")}, "fetch time series: boom"},
		{"decode", &stubSource{doc: badDate}, "decode time series"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			ds, err := FetchDataset(context.Background(), tt.src, TimeSeriesQuery{}, obs)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Zero(t, obs.calls, "failed decodes are not observed")
		})
	}
}
