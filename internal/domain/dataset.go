package domain

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// UnknownVariable names a variable whose header has no parameterId.
const UnknownVariable = "unknown"

// Values is a float64 column where NaN marks a missing entry. It encodes NaN
// as JSON null.
type Values []float64

// MarshalJSON encodes NaN entries as null.
func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) {
			out[i] = &v[i]
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null entries as NaN.
func (v *Values) UnmarshalJSON(data []byte) error {
	var in []*float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in == nil {
		*v = nil
		return nil
	}
	out := make(Values, len(in))
	for i, p := range in {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*v = out
	return nil
}

// Missing counts the NaN entries.
func (v Values) Missing() int {
	n := 0
	for _, x := range v {
		if math.IsNaN(x) {
			n++
		}
	}
	return n
}

// Attrs holds per-variable metadata. Absent string attributes are nil and
// absent numeric ones are NaN.
type Attrs map[string]any

// MarshalJSON encodes NaN attributes as null.
func (a Attrs) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	out := make(map[string]any, len(a))
	for k, v := range a {
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// String returns the attribute as a string, or "" if it is absent or not a string.
func (a Attrs) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Float returns the attribute as a float64, or NaN if it is absent or not numeric.
func (a Attrs) Float(key string) float64 {
	f, ok := a[key].(float64)
	if !ok {
		return math.NaN()
	}
	return f
}

// Variable is a named data column aligned to its dataset's time coordinate.
// Flag holds the quality flags of this variable's events, NaN where an event
// carried none, and is nil when no event of the variable carried a flag.
type Variable struct {
	Name   string `json:"name"`
	Values Values `json:"values"`
	Flag   Values `json:"flag,omitempty"`
	Attrs  Attrs  `json:"attrs"`
}

// Dataset is a set of variables sharing one time coordinate.
type Dataset struct {
	Time      []time.Time
	Variables []Variable
}

type datasetJSON struct {
	Time      []string   `json:"time"`
	Variables []Variable `json:"variables"`
}

// MarshalJSON encodes times in the wire format.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := datasetJSON{
		Time:      make([]string, len(d.Time)),
		Variables: d.Variables,
	}
	for i, t := range d.Time {
		out.Time[i] = FormatTime(t)
	}
	if out.Variables == nil {
		out.Variables = []Variable{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a dataset encoded by MarshalJSON.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var in datasetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	times := make([]time.Time, len(in.Time))
	for i, s := range in.Time {
		t, err := ParseWireTime(s)
		if err != nil {
			return err
		}
		times[i] = t
	}
	d.Time = times
	d.Variables = in.Variables
	return nil
}

// IsEmpty reports whether the dataset holds no variables.
func (d *Dataset) IsEmpty() bool {
	return len(d.Variables) == 0
}

// Variable looks up a variable by name.
func (d *Dataset) Variable(name string) (Variable, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Names lists variable names in dataset order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.Variables))
	for i, v := range d.Variables {
		names[i] = v.Name
	}
	return names
}

// MissingValues counts NaN entries across all variables.
func (d *Dataset) MissingValues() int {
	n := 0
	for _, v := range d.Variables {
		n += v.Values.Missing()
	}
	return n
}

// Merge combines datasets on their time coordinate.
//
// No datasets give an empty dataset and a single dataset is returned as is.
// Otherwise the result's time coordinate is the ascending union of all input
// instants and every variable is aligned to it with NaN where it had no
// value. Variables with the same name are combined: where both have a value at
// the same instant the earlier dataset wins, and attributes come from the
// first dataset that carried the name. A flag travels with the value it
// qualifies.
func Merge(parts []*Dataset) *Dataset {
	switch len(parts) {
	case 0:
		return &Dataset{}
	case 1:
		return parts[0]
	}

	times, index := unionTimes(parts)
	merged := &Dataset{Time: times}

	positions := make(map[string]int)
	for _, part := range parts {
		for _, v := range part.Variables {
			pos, ok := positions[v.Name]
			if !ok {
				pos = len(merged.Variables)
				positions[v.Name] = pos
				merged.Variables = append(merged.Variables, Variable{
					Name:   v.Name,
					Values: nanValues(len(times)),
					Attrs:  v.Attrs,
				})
			}
			fillAligned(&merged.Variables[pos], index, part.Time, v)
		}
	}
	return merged
}

// instant identifies a point in time independently of location and
// monotonic clock reading, over the full range of time.Time.
type instant struct {
	sec  int64
	nsec int
}

func instantOf(t time.Time) instant {
	return instant{sec: t.Unix(), nsec: t.Nanosecond()}
}

// unionTimes returns the distinct instants across parts in ascending order,
// in UTC, and the position of each instant in that order.
func unionTimes(parts []*Dataset) ([]time.Time, map[instant]int) {
	seen := make(map[instant]time.Time)
	for _, p := range parts {
		for _, t := range p.Time {
			seen[instantOf(t)] = t.UTC()
		}
	}
	times := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	index := make(map[instant]int, len(times))
	for i, t := range times {
		index[instantOf(t)] = i
	}
	return times, index
}

// fillAligned copies src into dst at each time's position in index. A slot
// without a value takes src's value together with its flag; a slot that stays
// without a value keeps the first flag seen.
func fillAligned(dst *Variable, index map[instant]int, times []time.Time, src Variable) {
	if src.Flag != nil && dst.Flag == nil {
		dst.Flag = nanValues(len(dst.Values))
	}
	for i, t := range times {
		if i >= len(src.Values) {
			return
		}
		pos := index[instantOf(t)]
		if !math.IsNaN(dst.Values[pos]) {
			continue
		}
		flag := math.NaN()
		if i < len(src.Flag) {
			flag = src.Flag[i]
		}
		switch {
		case !math.IsNaN(src.Values[i]):
			dst.Values[pos] = src.Values[i]
			if dst.Flag != nil {
				dst.Flag[pos] = flag
			}
		case dst.Flag != nil && math.IsNaN(dst.Flag[pos]):
			dst.Flag[pos] = flag
		}
	}
}

func nanValues(n int) Values {
	v := make(Values, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}
