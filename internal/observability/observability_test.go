package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWriter(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "endpoint", "timeseries")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "timeseries", line["endpoint"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWriter(&buf, "debug", "TEXT")

	logger.Debug("hello", "n", 1)

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "n=1")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestMetrics_ObserveDataset(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveDataset(2, 1, 32)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SeriesDecoded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeriesSkipped))
	assert.Equal(t, 32.0, testutil.ToFloat64(m.MissingValues))
}

func TestNewUnregisteredMetrics(t *testing.T) {
	a := NewUnregisteredMetrics()
	b := NewUnregisteredMetrics()

	a.Requests.WithLabelValues("timeseries", "success").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Requests.WithLabelValues("timeseries", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Requests.WithLabelValues("timeseries", "success")))
}
