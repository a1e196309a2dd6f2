package domain

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ParamKind selects how a Go argument is converted to its wire form.
type ParamKind int

const (
	KindString ParamKind = iota
	KindStringList
	KindBool
	KindInt
	KindTime
	KindEnum
)

func (k ParamKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStringList:
		return "string list"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindTime:
		return "datetime"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Param declares one endpoint argument.
type Param struct {
	Name     string    // argument name used by callers
	Wire     string    // query parameter name
	Kind     ParamKind // conversion rule
	Values   []string  // allowed values for KindEnum
	Required bool
}

// Endpoint declares a FEWS PI REST endpoint and the arguments it accepts.
type Endpoint struct {
	Name   string
	Method string
	Path   string
	Params []Param
}

// DocumentFormatPIJSON is the only document format this client decodes.
const DocumentFormatPIJSON = "PI_JSON"

const argDocumentFormat = "document_format"

var (
	TimeSeriesEndpoint = Endpoint{
		Name:   "timeseries",
		Method: http.MethodGet,
		Path:   "timeseries",
		Params: []Param{
			{Name: "filter_id", Wire: "filterId", Kind: KindString},
			{Name: "location_ids", Wire: "locationIds", Kind: KindStringList},
			{Name: "parameter_ids", Wire: "parameterIds", Kind: KindStringList},
			{Name: "qualifier_ids", Wire: "qualifierIds", Kind: KindStringList},
			{Name: "module_instance_ids", Wire: "moduleInstanceIds", Kind: KindStringList},
			{Name: "ensemble_id", Wire: "ensembleId", Kind: KindString},
			{Name: "ensemble_member_id", Wire: "ensembleMemberId", Kind: KindString},
			{Name: "start_time", Wire: "startTime", Kind: KindTime},
			{Name: "end_time", Wire: "endTime", Kind: KindTime},
			{Name: "start_creation_time", Wire: "startCreationTime", Kind: KindTime},
			{Name: "end_creation_time", Wire: "endCreationTime", Kind: KindTime},
			{Name: "start_forecast_time", Wire: "startForecastTime", Kind: KindTime},
			{Name: "end_forecast_time", Wire: "endForecastTime", Kind: KindTime},
			{Name: "forecast_count", Wire: "forecastCount", Kind: KindInt},
			{Name: "omit_missing", Wire: "omitMissing", Kind: KindBool},
			{Name: "only_headers", Wire: "onlyHeaders", Kind: KindBool},
			{Name: "only_forecasts", Wire: "onlyForecasts", Kind: KindBool},
			{Name: "show_statistics", Wire: "showStatistics", Kind: KindBool},
			{Name: "show_thresholds", Wire: "showThresholds", Kind: KindBool},
			{Name: "use_display_units", Wire: "useDisplayUnits", Kind: KindBool},
			{Name: "import_from_external_data_source", Wire: "importFromExternalDataSource", Kind: KindBool},
			{Name: "document_version", Wire: "documentVersion", Kind: KindString},
			{Name: argDocumentFormat, Wire: "documentFormat", Kind: KindEnum, Values: []string{"PI_JSON", "PI_XML", "PI_CSV"}},
		},
	}

	TaskRunsEndpoint = Endpoint{
		Name:   "taskruns",
		Method: http.MethodGet,
		Path:   "taskruns",
		Params: []Param{
			{Name: "workflow_id", Wire: "workflowId", Kind: KindString},
			{Name: "task_run_ids", Wire: "taskRunIds", Kind: KindStringList},
			{Name: "start_dispatch_time", Wire: "startDispatchTime", Kind: KindTime},
			{Name: "end_dispatch_time", Wire: "endDispatchTime", Kind: KindTime},
			{Name: "start_forecast_time", Wire: "startForecastTime", Kind: KindTime},
			{Name: "end_forecast_time", Wire: "endForecastTime", Kind: KindTime},
			{Name: "task_run_count", Wire: "taskRunCount", Kind: KindInt},
			{Name: "only_current", Wire: "onlyCurrent", Kind: KindBool},
			{Name: "only_forecasts", Wire: "onlyForecasts", Kind: KindBool},
			{Name: "document_version", Wire: "documentVersion", Kind: KindString},
			{Name: argDocumentFormat, Wire: "documentFormat", Kind: KindEnum, Values: []string{"PI_JSON", "PI_XML"}},
		},
	}

	WhatIfScenariosEndpoint = Endpoint{
		Name:   "whatif_scenarios",
		Method: http.MethodPost,
		Path:   "whatifscenarios",
		Params: []Param{
			{Name: "what_if_template_id", Wire: "whatIfTemplateId", Kind: KindString, Required: true},
			{Name: "single_run_what_if", Wire: "singleRunWhatIf", Kind: KindString},
			{Name: "name", Wire: "name", Kind: KindString},
			{Name: "document_version", Wire: "documentVersion", Kind: KindString},
			{Name: argDocumentFormat, Wire: "documentFormat", Kind: KindEnum, Values: []string{"PI_JSON", "PI_XML"}},
		},
	}

	WorkflowEndpoint = Endpoint{
		Name:   "workflow",
		Method: http.MethodPost,
		Path:   "runtask",
		Params: []Param{
			{Name: "workflow_id", Wire: "workflowId", Kind: KindString, Required: true},
			{Name: "start_time", Wire: "startTime", Kind: KindTime},
			{Name: "time_zero", Wire: "timeZero", Kind: KindTime},
			{Name: "end_time", Wire: "endTime", Kind: KindTime},
			{Name: "cold_state_id", Wire: "coldStateId", Kind: KindString},
			{Name: "scenario_id", Wire: "scenarioId", Kind: KindString},
			{Name: "user_id", Wire: "userId", Kind: KindString},
			{Name: "description", Wire: "description", Kind: KindString},
		},
	}
)

var endpoints = []Endpoint{TimeSeriesEndpoint, TaskRunsEndpoint, WhatIfScenariosEndpoint, WorkflowEndpoint}

// EndpointByName looks up a declared endpoint.
func EndpointByName(name string) (Endpoint, error) {
	for _, e := range endpoints {
		if e.Name == name {
			return e, nil
		}
	}
	return Endpoint{}, fmt.Errorf("%w: unknown endpoint: %s", ErrInvalidArgument, name)
}

// EndpointNames lists the declared endpoint names.
func EndpointNames() []string {
	names := make([]string, len(endpoints))
	for i, e := range endpoints {
		names[i] = e.Name
	}
	return names
}

// InputArgs lists the argument names the endpoint accepts, in declaration order.
func (e Endpoint) InputArgs() []string {
	names := make([]string, len(e.Params))
	for i, p := range e.Params {
		names[i] = p.Name
	}
	return names
}

// Param looks up an argument declaration by name.
func (e Endpoint) Param(name string) (Param, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Encode converts arguments to query values. Nil arguments are skipped.
// Endpoints that take a document format default to PI_JSON and reject any
// other format with ErrNotImplemented.
func (e Endpoint) Encode(args map[string]any) (url.Values, error) {
	values := url.Values{}
	for name, arg := range args {
		p, ok := e.Param(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown argument %q for endpoint %s", ErrInvalidArgument, name, e.Name)
		}
		if isNil(arg) {
			continue
		}
		wire, err := p.encode(arg)
		if err != nil {
			return nil, err
		}
		for _, w := range wire {
			values.Add(p.Wire, w)
		}
	}

	for _, p := range e.Params {
		if p.Required && values.Get(p.Wire) == "" {
			return nil, fmt.Errorf("%w: %s is required for endpoint %s", ErrInvalidArgument, p.Name, e.Name)
		}
	}

	if p, ok := e.Param(argDocumentFormat); ok {
		switch format := values.Get(p.Wire); format {
		case "":
			values.Set(p.Wire, DocumentFormatPIJSON)
		case DocumentFormatPIJSON:
		default:
			return nil, fmt.Errorf("%w: document format %s", ErrNotImplemented, format)
		}
	}
	return values, nil
}

// encode converts a single argument according to the parameter kind.
func (p Param) encode(arg any) ([]string, error) {
	switch p.Kind {
	case KindString:
		s, ok := stringArg(arg)
		if !ok {
			return nil, p.typeError(arg)
		}
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil

	case KindStringList:
		switch t := arg.(type) {
		case []string:
			return slices.Clone(t), nil
		case string:
			return []string{t}, nil
		}
		return nil, p.typeError(arg)

	case KindBool:
		b, ok := boolArg(arg)
		if !ok {
			return nil, fmt.Errorf("%w: %s: expected boolean value, got %v", ErrInvalidArgument, p.Name, arg)
		}
		return []string{strconv.FormatBool(b)}, nil

	case KindInt:
		switch t := arg.(type) {
		case int:
			return []string{strconv.Itoa(t)}, nil
		case *int:
			return []string{strconv.Itoa(*t)}, nil
		}
		return nil, p.typeError(arg)

	case KindTime:
		switch t := arg.(type) {
		case time.Time:
			return []string{FormatTime(t)}, nil
		case *time.Time:
			return []string{FormatTime(*t)}, nil
		case string:
			s, err := FormatTimeString(t)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Name, err)
			}
			return []string{s}, nil
		}
		return nil, p.typeError(arg)

	case KindEnum:
		s, ok := stringArg(arg)
		if !ok {
			return nil, p.typeError(arg)
		}
		s = strings.TrimSpace(s)
		if !slices.Contains(p.Values, s) {
			return nil, fmt.Errorf("%w: %s: invalid value %q, expected one of %s",
				ErrInvalidArgument, p.Name, s, strings.Join(p.Values, ", "))
		}
		return []string{s}, nil
	}
	return nil, fmt.Errorf("%w: %s: unsupported parameter kind %d", ErrInvalidArgument, p.Name, p.Kind)
}

func (p Param) typeError(arg any) error {
	return fmt.Errorf("%w: %s: expected %s, got %T", ErrInvalidArgument, p.Name, p.Kind, arg)
}

func stringArg(arg any) (string, bool) {
	switch t := arg.(type) {
	case string:
		return t, true
	case *string:
		return *t, true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

func boolArg(arg any) (bool, bool) {
	switch t := arg.(type) {
	case bool:
		return t, true
	case *bool:
		return *t, true
	}
	return false, false
}

// isNil reports whether arg is nil or a typed nil pointer of a supported kind.
func isNil(arg any) bool {
	switch t := arg.(type) {
	case nil:
		return true
	case *string:
		return t == nil
	case *bool:
		return t == nil
	case *int:
		return t == nil
	case *time.Time:
		return t == nil
	}
	return false
}
