package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a PI_JSON time series response.
type Document struct {
	TimeSeries []Series `json:"timeSeries"`
}

// Series is one parameter's event stream at one location, with its header.
// The header is kept as a generic tree because FEWS adds fields per version
// and nests some of them (timeStep).
type Series struct {
	Header map[string]any `json:"header"`
	Events []Event        `json:"events"`
}

// Event is a single timestamped value in a series.
type Event struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Value Text   `json:"value"`
	Flag  *Text  `json:"flag,omitempty"`
}

// Text holds a PI_JSON scalar that is normally string encoded but may arrive
// as a bare JSON number.
type Text string

// UnmarshalJSON accepts a JSON string or number. Any other JSON value
// (null, a boolean, an object or an array) decodes as empty text, which the
// decoder treats as a missing value.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*t = ""
		return nil
	}
	*t = Text(n.String())
	return nil
}

// ParseDocument decodes a PI_JSON response body.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

// EmptySeries counts series that carry no events and will be dropped by the
// decoder.
func (d Document) EmptySeries() int {
	n := 0
	for _, s := range d.TimeSeries {
		if len(s.Events) == 0 {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no series in the document has events.
func (d Document) IsEmpty() bool {
	return d.EmptySeries() == len(d.TimeSeries)
}
