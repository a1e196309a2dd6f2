// Command genfixture writes the PI_JSON time series fixture used by the test
// suites and prints the decoded dataset stats those tests assert on. It
// decodes its own output with the domain package so the printed numbers match
// real client behavior.
//
// Usage:
//
//	go run ./cmd/genfixture -out internal/domain/testdata/timeseries_response.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/fews-client/internal/domain"
)

var baseTime = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

const missVal = "-999.0"

// document mirrors the PI_JSON envelope with its version fields, which the
// client ignores but real servers send.
type document struct {
	Version    string   `json:"version"`
	TimeZone   string   `json:"timeZone"`
	TimeSeries []series `json:"timeSeries"`
}

type series struct {
	Header map[string]any `json:"header"`
	Events []event        `json:"events"`
}

type event struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Value string `json:"value"`
	Flag  string `json:"flag,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "internal/domain/testdata/timeseries_response.json", "output path for the PI_JSON fixture")
	flag.Parse()

	doc := document{
		Version:  "1.32",
		TimeZone: "0.0",
		TimeSeries: []series{
			riverLevel(),
			rainRate(),
			emptyMouthLevel(),
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	return printStats(data)
}

// riverLevel is a 5-minute water level series with two flagged gaps.
func riverLevel() series {
	const n = 42
	events := make([]event, n)
	for i := range events {
		e := eventAt(baseTime.Add(time.Duration(i) * 5 * time.Minute))
		e.Value = fmt.Sprintf("%.3f", 1.2+0.01*float64(i))
		e.Flag = "0"
		if i == 7 || i == 8 {
			e.Value = missVal
			e.Flag = "9"
		}
		events[i] = e
	}
	last := baseTime.Add((n - 1) * 5 * time.Minute)

	return series{
		Header: map[string]any{
			"type":             "instantaneous",
			"moduleInstanceId": "Import.Rain",
			"locationId":       "Amanzimtoti_River_level",
			"parameterId":      "H.obs",
			"timeStep":         map[string]any{"unit": "second", "multiplier": "300"},
			"startDate":        dateTime(baseTime),
			"endDate":          dateTime(last),
			"missVal":          missVal,
			"stationName":      "Amanzimtoti River level",
			"lat":              "-30.0521",
			"lon":              "30.8862",
			"x":                "30.8862",
			"y":                "-30.0521",
			"z":                "2.5",
			"units":            "m",
			"creationDate":     "2025-03-14",
			"creationTime":     "13:30:00",
		},
		Events: events,
	}
}

// rainRate is a 15-minute rain series with one unparseable value and no flags.
func rainRate() series {
	events := make([]event, 13)
	for i := range events {
		e := eventAt(baseTime.Add(time.Duration(i) * 15 * time.Minute))
		e.Value = fmt.Sprintf("%.2f", 0.25*float64(i))
		if i == 4 {
			e.Value = "NaN"
		}
		events[i] = e
	}

	return series{
		Header: map[string]any{
			"type":             "accumulative",
			"moduleInstanceId": "Import.Rain",
			"locationId":       "Amanzimtoti_Rain",
			"parameterId":      "P.obs.rate",
			"timeStep":         map[string]any{"unit": "second", "multiplier": "900"},
			"missVal":          missVal,
			"stationName":      "Amanzimtoti Rain gauge",
			"lat":              "-30.0600",
			"lon":              "30.8800",
			"units":            "mm/hr",
		},
		Events: events,
	}
}

// emptyMouthLevel has a header but no events; the decoder drops it.
func emptyMouthLevel() series {
	return series{
		Header: map[string]any{
			"type":             "instantaneous",
			"moduleInstanceId": "Import.Rain",
			"locationId":       "Amanzimtoti_River_Mouth_level",
			"parameterId":      "H.obs.mouth",
			"timeStep":         map[string]any{"unit": "nonequidistant"},
			"missVal":          missVal,
			"units":            "m",
		},
		Events: []event{},
	}
}

func eventAt(t time.Time) event {
	return event{Date: t.Format("2006-01-02"), Time: t.Format("15:04:05")}
}

func dateTime(t time.Time) map[string]any {
	return map[string]any{"date": t.Format("2006-01-02"), "time": t.Format("15:04:05")}
}

func printStats(data []byte) error {
	doc, err := domain.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("reparse fixture: %w", err)
	}
	ds, err := domain.DecodeTimeSeries(doc)
	if err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Series: %d (empty: %d)\n", len(doc.TimeSeries), doc.EmptySeries())
	fmt.Printf("Variables: %v\n", ds.Names())
	if len(ds.Time) > 0 {
		fmt.Printf("Times: %d (%s .. %s)\n", len(ds.Time), domain.FormatTime(ds.Time[0]), domain.FormatTime(ds.Time[len(ds.Time)-1]))
	}
	for _, v := range ds.Variables {
		fmt.Printf("  %-12s missing=%d flagged=%t units=%s lat=%g\n",
			v.Name, v.Values.Missing(), v.Flag != nil, v.Attrs.String(domain.AttrUnits), v.Attrs.Float(domain.AttrLat))
	}
	fmt.Printf("Missing values: %d\n", ds.MissingValues())
	return nil
}
