package fews

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/fews-client/internal/domain"
	"github.com/couchcryptid/fews-client/internal/observability"
	"golang.org/x/time/rate"
)

// ErrStatus is returned when the web service answers with a non-200 status.
var ErrStatus = errors.New("fews: unexpected response status")

// maxErrorBody bounds how much of an error response is kept in the error message.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	BaseURL      string
	Token        string
	Authenticate bool
	VerifySSL    bool
	Timeout      time.Duration
	RateLimit    float64 // requests per second, 0 disables limiting
}

// Client talks to the FEWS PI REST web service.
// It implements domain.TimeSeriesSource.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FEWS web service client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", domain.ErrInvalidArgument)
	}
	if opts.Authenticate && opts.Token == "" {
		return nil, fmt.Errorf("%w: authentication requires a token", domain.ErrInvalidArgument)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed FEWS servers
	}

	token := ""
	if opts.Authenticate {
		token = opts.Token
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:    newLimiter(opts.RateLimit),
		metrics:    metrics,
		logger:     logger,
	}, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// FetchTimeSeries requests a PI_JSON time series document.
func (c *Client) FetchTimeSeries(ctx context.Context, q domain.TimeSeriesQuery) (domain.Document, error) {
	body, err := c.call(ctx, domain.TimeSeriesEndpoint, q.Args())
	if err != nil {
		return domain.Document{}, err
	}
	doc, err := domain.ParseDocument(body)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.IsEmpty() {
		c.logger.Debug("fews returned no time series data", "endpoint", domain.TimeSeriesEndpoint.Name)
	}
	return doc, nil
}

// TimeSeriesDataset fetches time series and decodes them into a merged dataset.
func (c *Client) TimeSeriesDataset(ctx context.Context, q domain.TimeSeriesQuery) (*domain.Dataset, error) {
	return domain.FetchDataset(ctx, c, q, c.metrics)
}

// TaskRuns lists the runs of a workflow, optionally restricted to the given task run IDs.
func (c *Client) TaskRuns(ctx context.Context, workflowID string, taskRunIDs ...string) (domain.TaskRunsResponse, error) {
	q := domain.TaskRunsQuery{WorkflowID: workflowID, TaskRunIDs: taskRunIDs}
	body, err := c.call(ctx, domain.TaskRunsEndpoint, q.Args())
	if err != nil {
		return domain.TaskRunsResponse{}, err
	}

	var resp domain.TaskRunsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.TaskRunsResponse{}, fmt.Errorf("%w: taskruns: %v", domain.ErrInvalidDocument, err)
	}
	return resp, nil
}

// ExecuteWhatIfScenario creates a what-if scenario and returns the service response.
func (c *Client) ExecuteWhatIfScenario(ctx context.Context, r domain.WhatIfRequest) (map[string]any, error) {
	body, err := c.call(ctx, domain.WhatIfScenariosEndpoint, r.Args())
	if err != nil {
		return nil, err
	}
	return decodeObject(body), nil
}

// ExecuteWorkflow starts a workflow run. The service answers with the new
// task run ID, which is returned under "taskRunId" when the body is not JSON.
func (c *Client) ExecuteWorkflow(ctx context.Context, r domain.WorkflowRequest) (map[string]any, error) {
	body, err := c.call(ctx, domain.WorkflowEndpoint, r.Args())
	if err != nil {
		return nil, err
	}
	return decodeObject(body), nil
}

// EndpointArguments lists the argument names accepted by the named endpoint.
func EndpointArguments(name string) ([]string, error) {
	e, err := domain.EndpointByName(name)
	if err != nil {
		return nil, err
	}
	return e.InputArgs(), nil
}

// call encodes args for the endpoint and performs the request.
func (c *Client) call(ctx context.Context, e domain.Endpoint, args map[string]any) ([]byte, error) {
	values, err := e.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}

	body, err := c.do(ctx, e, values)
	if err != nil {
		c.metrics.Requests.WithLabelValues(e.Name, "error").Inc()
		return nil, err
	}
	c.metrics.Requests.WithLabelValues(e.Name, "success").Inc()
	return body, nil
}

func (c *Client) do(ctx context.Context, e domain.Endpoint, values url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", e.Name, err)
	}

	fullURL := c.baseURL + "/" + e.Path
	if len(values) > 0 {
		fullURL += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, e.Method, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RequestDuration.WithLabelValues(e.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", e.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrStatus, e.Name, resp.StatusCode, bytes.TrimSpace(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", e.Name, err)
	}

	c.logger.Debug("fews request complete",
		"endpoint", e.Name,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return body, nil
}

// decodeObject decodes a JSON object response, falling back to the raw text
// for the plain-text IDs some endpoints return.
func decodeObject(body []byte) map[string]any {
	out := map[string]any{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return out
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return map[string]any{"taskRunId": string(trimmed)}
	}
	return out
}
