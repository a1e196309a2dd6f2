package domain

import (
	"context"
	"time"
)

// TimeSeriesSource fetches PI_JSON time series documents.
type TimeSeriesSource interface {
	FetchTimeSeries(ctx context.Context, q TimeSeriesQuery) (Document, error)
}

// TimeSeriesQuery selects time series from the timeseries endpoint. Zero
// fields are left out of the request. Extra carries endpoint arguments that
// have no dedicated field, keyed by argument name (see Endpoint.InputArgs).
type TimeSeriesQuery struct {
	FilterID          string
	LocationIDs       []string
	ParameterIDs      []string
	QualifierIDs      []string
	ModuleInstanceIDs []string

	StartTime         *time.Time
	EndTime           *time.Time
	StartCreationTime *time.Time
	EndCreationTime   *time.Time
	StartForecastTime *time.Time
	EndForecastTime   *time.Time

	ForecastCount *int
	OmitMissing   *bool
	OnlyHeaders   *bool
	OnlyForecasts *bool

	DocumentFormat string
	Extra          map[string]any
}

// Args converts the query into timeseries endpoint arguments.
func (q TimeSeriesQuery) Args() map[string]any {
	args := make(map[string]any, len(q.Extra)+8)
	for k, v := range q.Extra {
		args[k] = v
	}
	putString(args, "filter_id", q.FilterID)
	putList(args, "location_ids", q.LocationIDs)
	putList(args, "parameter_ids", q.ParameterIDs)
	putList(args, "qualifier_ids", q.QualifierIDs)
	putList(args, "module_instance_ids", q.ModuleInstanceIDs)
	putTimes(args,
		[]string{"start_time", "end_time", "start_creation_time", "end_creation_time", "start_forecast_time", "end_forecast_time"},
		[]*time.Time{q.StartTime, q.EndTime, q.StartCreationTime, q.EndCreationTime, q.StartForecastTime, q.EndForecastTime})
	if q.ForecastCount != nil {
		args["forecast_count"] = *q.ForecastCount
	}
	putBool(args, "omit_missing", q.OmitMissing)
	putBool(args, "only_headers", q.OnlyHeaders)
	putBool(args, "only_forecasts", q.OnlyForecasts)
	putString(args, argDocumentFormat, q.DocumentFormat)
	return args
}

// WithWindow returns a copy of q bounded to [start, end].
func (q TimeSeriesQuery) WithWindow(start, end time.Time) TimeSeriesQuery {
	q.StartTime = &start
	q.EndTime = &end
	return q
}

// TaskRunsQuery selects task runs from the taskruns endpoint.
type TaskRunsQuery struct {
	WorkflowID    string
	TaskRunIDs    []string
	OnlyCurrent   *bool
	OnlyForecasts *bool
	TaskRunCount  *int
}

// Args converts the query into taskruns endpoint arguments.
func (q TaskRunsQuery) Args() map[string]any {
	args := map[string]any{}
	putString(args, "workflow_id", q.WorkflowID)
	putList(args, "task_run_ids", q.TaskRunIDs)
	putBool(args, "only_current", q.OnlyCurrent)
	putBool(args, "only_forecasts", q.OnlyForecasts)
	if q.TaskRunCount != nil {
		args["task_run_count"] = *q.TaskRunCount
	}
	args[argDocumentFormat] = DocumentFormatPIJSON
	return args
}

// WhatIfRequest creates a what-if scenario from a template.
type WhatIfRequest struct {
	TemplateID      string
	SingleRunWhatIf string
	Name            string
	DocumentFormat  string
	DocumentVersion string
}

// Args converts the request into whatif_scenarios endpoint arguments.
func (r WhatIfRequest) Args() map[string]any {
	args := map[string]any{}
	putString(args, "what_if_template_id", r.TemplateID)
	putString(args, "single_run_what_if", r.SingleRunWhatIf)
	putString(args, "name", r.Name)
	putString(args, "document_version", r.DocumentVersion)
	putString(args, argDocumentFormat, r.DocumentFormat)
	return args
}

// WorkflowRequest starts a workflow run.
type WorkflowRequest struct {
	WorkflowID  string
	StartTime   *time.Time
	TimeZero    *time.Time
	EndTime     *time.Time
	ColdStateID string
	ScenarioID  string
	UserID      string
	Description string
}

// Args converts the request into workflow endpoint arguments.
func (r WorkflowRequest) Args() map[string]any {
	args := map[string]any{}
	putString(args, "workflow_id", r.WorkflowID)
	putTimes(args, []string{"start_time", "time_zero", "end_time"}, []*time.Time{r.StartTime, r.TimeZero, r.EndTime})
	putString(args, "cold_state_id", r.ColdStateID)
	putString(args, "scenario_id", r.ScenarioID)
	putString(args, "user_id", r.UserID)
	putString(args, "description", r.Description)
	return args
}

func putString(args map[string]any, key, v string) {
	if v != "" {
		args[key] = v
	}
}

func putList(args map[string]any, key string, v []string) {
	if len(v) > 0 {
		args[key] = v
	}
}

// putTimes sets each bound that is present in wire format under the key at
// the same position.
func putTimes(args map[string]any, keys []string, bounds []*time.Time) {
	for i, s := range FormatTimes(bounds) {
		if s != nil {
			args[keys[i]] = *s
		}
	}
}

func putBool(args map[string]any, key string, v *bool) {
	if v != nil {
		args[key] = *v
	}
}
