package domain

import (
	"fmt"
	"strings"
	"time"
)

// WireTimeLayout is the UTC, second precision time format used in FEWS
// query parameters.
const WireTimeLayout = "2006-01-02T15:04:05Z"

// eventTimeLayout is the naive layout formed by joining an event's date and time.
const eventTimeLayout = "2006-01-02T15:04:05"

// awareLayouts are accepted by FormatTimeString. All of them carry an offset.
var awareLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// naiveLayouts are recognized only to report a missing timezone.
var naiveLayouts = []string{
	eventTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatTime renders t in UTC as YYYY-MM-DDTHH:MM:SSZ. Sub-second precision
// is dropped.
func FormatTime(t time.Time) string {
	return t.UTC().Format(WireTimeLayout)
}

// FormatTimes formats each non-nil entry and keeps nil entries in place, so
// callers can tell which optional bounds were unset.
func FormatTimes(ts []*time.Time) []*string {
	out := make([]*string, len(ts))
	for i, t := range ts {
		if t == nil {
			continue
		}
		s := FormatTime(*t)
		out[i] = &s
	}
	return out
}

// FormatTimeString parses a user supplied ISO 8601 timestamp and renders it in
// the wire format. Timestamps without an offset are rejected rather than
// assumed to be in any particular zone.
func FormatTimeString(s string) (string, error) {
	t, err := ParseAwareTime(s)
	if err != nil {
		return "", err
	}
	return FormatTime(t), nil
}

// ParseAwareTime parses an ISO 8601 timestamp that must carry timezone
// information.
func ParseAwareTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, fmt.Errorf("%w: timestamp must be timezone-aware: %q", ErrInvalidArgument, s)
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidArgument, s)
}

// ParseWireTime parses a time rendered by FormatTime.
func ParseWireTime(s string) (time.Time, error) {
	t, err := time.Parse(WireTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return t, nil
}

// parseEventTime joins an event's date and time fields into a UTC timestamp.
func parseEventTime(date, clock string) (time.Time, error) {
	raw := strings.TrimSpace(date) + "T" + strings.TrimSpace(clock)
	t, err := time.Parse(eventTimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: event time %q: %v", ErrInvalidArgument, raw, err)
	}
	return t.UTC(), nil
}
