// Command fews is a one-shot client for a FEWS PI REST web service. It reads
// the connection settings from FEWS_* environment variables (optionally from a
// .env file) and prints the decoded response as JSON.
//
// Usage:
//
//	fews [-env .env] [-log-level warn] <command> [flags]
//
// Commands:
//
//	timeseries  fetch time series and print the merged dataset (or the raw document with -raw)
//	taskruns    list the task runs of a workflow
//	whatif      create a what-if scenario from a template
//	workflow    start a workflow run
//	args        list the arguments an endpoint accepts
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/fews-client/internal/adapter/fews"
	"github.com/couchcryptid/fews-client/internal/config"
	"github.com/couchcryptid/fews-client/internal/domain"
	"github.com/couchcryptid/fews-client/internal/observability"
	"github.com/joho/godotenv"
)

const usage = `usage: fews [-env file] [-log-level level] <command> [flags]

commands:
  timeseries  fetch time series and print the merged dataset
  taskruns    list the task runs of a workflow
  whatif      create a what-if scenario from a template
  workflow    start a workflow run
  args        list the arguments an endpoint accepts
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries what every command needs.
type cli struct {
	client *fews.Client
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("fews", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	envFile := global.String("env", ".env", "dotenv file to load before reading FEWS_* variables")
	logLevel := global.String("log-level", "warn", "log level: debug, info, warn, error")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}
	cmd, cmdArgs := global.Arg(0), global.Args()[1:]

	// args needs no connection.
	if cmd == "args" {
		return runArgs(cmdArgs, stdout, stderr)
	}

	if err := loadEnv(*envFile); err != nil {
		fmt.Fprintf(stderr, "error: load %s: %v\n", *envFile, err)
		return 1
	}
	cfg, err := config.LoadFEWS()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger := observability.NewLoggerWriter(stderr, *logLevel, "text")
	client, err := fews.NewClient(fews.Options{
		BaseURL:      cfg.APIURL,
		Token:        cfg.Token,
		Authenticate: cfg.Authenticate,
		VerifySSL:    cfg.VerifySSL,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
	}, observability.NewUnregisteredMetrics(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	c := &cli{client: client, stdout: stdout, stderr: stderr}
	switch cmd {
	case "timeseries":
		return c.timeSeries(ctx, cmdArgs)
	case "taskruns":
		return c.taskRuns(ctx, cmdArgs)
	case "whatif":
		return c.whatIf(ctx, cmdArgs)
	case "workflow":
		return c.workflow(ctx, cmdArgs)
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

// loadEnv loads a dotenv file; a missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *cli) timeSeries(ctx context.Context, args []string) int {
	fset := flag.NewFlagSet("timeseries", flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	locations := fset.String("locations", "", "comma-separated location IDs")
	parameters := fset.String("parameters", "", "comma-separated parameter IDs")
	qualifiers := fset.String("qualifiers", "", "comma-separated qualifier IDs")
	filter := fset.String("filter", "", "filter ID")
	start := fset.String("start", "", "start time, timezone-aware ISO 8601")
	end := fset.String("end", "", "end time, timezone-aware ISO 8601")
	onlyHeaders := fset.Bool("only-headers", false, "request headers only")
	omitMissing := fset.Bool("omit-missing", false, "ask the service to omit missing values")
	raw := fset.Bool("raw", false, "print the PI_JSON document instead of the dataset")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	q := domain.TimeSeriesQuery{
		FilterID:     *filter,
		LocationIDs:  splitList(*locations),
		ParameterIDs: splitList(*parameters),
		QualifierIDs: splitList(*qualifiers),
	}
	var err error
	if q.StartTime, err = parseTimeFlag("start", *start); err != nil {
		return c.fail(err)
	}
	if q.EndTime, err = parseTimeFlag("end", *end); err != nil {
		return c.fail(err)
	}
	if *onlyHeaders {
		q.OnlyHeaders = onlyHeaders
	}
	if *omitMissing {
		q.OmitMissing = omitMissing
	}

	if *raw {
		doc, err := c.client.FetchTimeSeries(ctx, q)
		if err != nil {
			return c.fail(err)
		}
		return c.print(doc)
	}

	ds, err := c.client.TimeSeriesDataset(ctx, q)
	if err != nil {
		return c.fail(err)
	}
	return c.print(ds)
}

func (c *cli) taskRuns(ctx context.Context, args []string) int {
	fset := flag.NewFlagSet("taskruns", flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	workflowID := fset.String("workflow", "", "workflow ID")
	tasks := fset.String("tasks", "", "comma-separated task run IDs")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	resp, err := c.client.TaskRuns(ctx, *workflowID, splitList(*tasks)...)
	if err != nil {
		return c.fail(err)
	}
	return c.print(resp)
}

func (c *cli) whatIf(ctx context.Context, args []string) int {
	fset := flag.NewFlagSet("whatif", flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	template := fset.String("template", "", "what-if template ID (required)")
	name := fset.String("name", "", "scenario name")
	singleRun := fset.String("single-run", "", "single run what-if ID")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	resp, err := c.client.ExecuteWhatIfScenario(ctx, domain.WhatIfRequest{
		TemplateID:      *template,
		Name:            *name,
		SingleRunWhatIf: *singleRun,
	})
	if err != nil {
		return c.fail(err)
	}
	return c.print(resp)
}

func (c *cli) workflow(ctx context.Context, args []string) int {
	fset := flag.NewFlagSet("workflow", flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	workflowID := fset.String("workflow", "", "workflow ID (required)")
	timeZero := fset.String("time-zero", "", "forecast time zero, timezone-aware ISO 8601")
	description := fset.String("description", "", "run description")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	req := domain.WorkflowRequest{WorkflowID: *workflowID, Description: *description}
	var err error
	if req.TimeZero, err = parseTimeFlag("time-zero", *timeZero); err != nil {
		return c.fail(err)
	}

	resp, err := c.client.ExecuteWorkflow(ctx, req)
	if err != nil {
		return c.fail(err)
	}
	return c.print(resp)
}

func runArgs(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintf(stderr, "usage: fews args <%s>\n", strings.Join(domain.EndpointNames(), "|"))
		return 2
	}
	names, err := fews.EndpointArguments(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return 0
}

func (c *cli) print(v any) int {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return c.fail(err)
	}
	return 0
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "error: %v\n", err)
	return 1
}

func parseTimeFlag(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseAwareTime(s)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return &t, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
