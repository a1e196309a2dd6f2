// Package domain models Delft-FEWS PI_JSON time series and the requests sent
// to the FEWS PI REST web service.
//
// # Data Source
//
// Time series come from the FEWS web service timeseries endpoint with
// documentFormat=PI_JSON. The document is a list of series, each made of a
// metadata header and an ordered list of events:
//
//	{"timeSeries": [{"header": {...}, "events": [{"date": ..., "time": ..., "value": ..., "flag": ...}]}]}
//
// # PI_JSON Conventions
//
// Event timestamps:
//
//	"date" is YYYY-MM-DD and "time" is HH:MM:SS. Combined they form a naive
//	timestamp that is always UTC; the service never emits offsets here.
//
// Event values:
//
//	Numbers are string encoded, e.g. "1.23". Anything that does not parse, or
//	equals the series' missing value ("missVal" header, default -999.0), is
//	treated as missing and decoded as NaN, never as zero.
//
// Quality flags:
//
//	"flag" is an optional string-encoded small integer (0 = original reliable,
//	higher values = less reliable). It is kept as a side coordinate.
//
// Header metadata:
//
//	Header values may be nested (e.g. "timeStep": {"unit": "second",
//	"multiplier": "900"}). Dots in string values are replaced with
//	underscores because downstream attribute names cannot hold them; see
//	[SanitizeMetadata].
//
// Wire time format:
//
//	Query parameters carry times as UTC, second precision, "Z" suffixed:
//	2025-03-14T10:00:00Z. See [FormatTime].
//
// # Datasets
//
// [DecodeTimeSeries] turns a [Document] into a [Dataset]: one data variable
// per distinct parameter, aligned on a shared time coordinate. Series with no
// events are dropped. Multiple series are merged with an outer join on time.
//
// # Endpoints
//
// Request parameters are declared statically per endpoint (see [Endpoint]).
// Each declaration names the wire parameter, its kind, and how Go values are
// converted, so invalid arguments fail before any request is made.
package domain
