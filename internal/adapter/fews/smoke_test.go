//go:build fews

package fews

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/fews-client/internal/domain"
	"github.com/couchcryptid/fews-client/internal/observability"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit a real FEWS web service and require FEWS_API_URL, either in
// the environment or in a .env file at the repository root.
// Run with: go test -tags=fews ./internal/adapter/fews/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	apiURL := os.Getenv("FEWS_API_URL")
	if apiURL == "" {
		t.Fatal("FEWS_API_URL must be set to run smoke tests")
	}
	token := os.Getenv("FEWS_TOKEN")

	c, err := NewClient(Options{
		BaseURL:      apiURL,
		Token:        token,
		Authenticate: token != "",
		VerifySSL:    os.Getenv("FEWS_VERIFY_SSL") != "false",
		Timeout:      30 * time.Second,
	}, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)
	return c
}

func TestSmoke_TimeSeriesDataset(t *testing.T) {
	c := smokeClient(t)

	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	ds, err := c.TimeSeriesDataset(context.Background(), domain.TimeSeriesQuery{
		LocationIDs:  []string{"Amanzimtoti_River_level", "Amanzimtoti_River_Mouth_level"},
		ParameterIDs: []string{"H.obs"},
		StartTime:    &start,
		EndTime:      &end,
	})
	require.NoError(t, err)

	for _, v := range ds.Variables {
		assert.Len(t, v.Values, len(ds.Time), v.Name)
	}
}

func TestSmoke_OnlyHeaders(t *testing.T) {
	c := smokeClient(t)
	onlyHeaders := true

	doc, err := c.FetchTimeSeries(context.Background(), domain.TimeSeriesQuery{
		LocationIDs:  []string{"Amanzimtoti_River_level"},
		ParameterIDs: []string{"H.obs"},
		OnlyHeaders:  &onlyHeaders,
	})
	require.NoError(t, err)

	for _, s := range doc.TimeSeries {
		assert.Empty(t, s.Events)
	}
}

func TestSmoke_TaskRuns(t *testing.T) {
	c := smokeClient(t)

	resp, err := c.TaskRuns(context.Background(), "RunParticleTracking", "SA5_1")
	require.NoError(t, err)
	for _, tr := range resp.TaskRuns {
		assert.NotEmpty(t, tr.ID)
	}
}

func TestSmoke_CachedSource(t *testing.T) {
	c := smokeClient(t)
	cached, err := NewCachedSource(c, 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	end := time.Now().UTC().Truncate(time.Hour)
	start := end.Add(-6 * time.Hour)
	q := domain.TimeSeriesQuery{ParameterIDs: []string{"H.obs"}, StartTime: &start, EndTime: &end}

	d1, err := cached.FetchTimeSeries(context.Background(), q)
	require.NoError(t, err)
	d2, err := cached.FetchTimeSeries(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
