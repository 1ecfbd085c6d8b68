package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nvandessel/vitaldyn/internal/config"
	"github.com/nvandessel/vitaldyn/internal/driver"
	"github.com/nvandessel/vitaldyn/internal/logging"
	"github.com/nvandessel/vitaldyn/internal/store"
	"github.com/nvandessel/vitaldyn/internal/validation"
)

const tracerName = "github.com/nvandessel/vitaldyn/internal/simulation"

type executeOptions struct {
	store  store.RunStore
	logger *slog.Logger
	trace  *logging.TraceLogger
}

// Option configures Execute.
type Option func(*executeOptions)

// WithStore persists the run, its events and its findings.
func WithStore(s store.RunStore) Option {
	return func(o *executeOptions) { o.store = s }
}

// WithLogger sets the operational logger passed to the driver.
func WithLogger(l *slog.Logger) Option {
	return func(o *executeOptions) { o.logger = l }
}

// WithTraceLogger records per-day summaries and failed findings.
func WithTraceLogger(tl *logging.TraceLogger) Option {
	return func(o *executeOptions) { o.trace = tl }
}

// Execute builds the model, runs the driver with an online validator,
// finishes validation and optionally stores the run.
//
// Configuration errors and invariant violations during the run are
// returned as errors. Statistical mismatches are findings in the report.
func Execute(ctx context.Context, sc Scenario, opts ...Option) (*Outcome, error) {
	o := executeOptions{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.Default()
	if sc.Config != nil {
		cfg = cloneConfig(sc.Config)
	}
	if sc.Configure != nil {
		sc.Configure(cfg)
	}
	if sc.Seed != 0 {
		cfg.Simulation.Seed = sc.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	model, err := cfg.Model()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "simulation.Execute",
		trace.WithAttributes(attribute.String("vitaldyn.scenario", sc.Name)))
	defer span.End()

	validator := validation.New(model, cfg.ValidationOptions())
	drv, err := driver.New(model, cfg.DriverConfig(),
		driver.WithSeed(cfg.Simulation.Seed),
		driver.WithObserver(validator),
		driver.WithLogger(o.logger),
		driver.WithTraceLogger(o.trace),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	res, err := drv.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	cfg.Simulation.Seed = res.Seed

	report := finish(ctx, validator, res)
	o.logger.Info("validation finished",
		"scenario", sc.Name,
		"passed", report.Passed(),
		"failures", len(report.Failures()),
		"soft_failures", len(report.SoftFailures()))
	for _, f := range report.Failures() {
		o.logger.Warn("validation failure", "finding", f.String())
		o.trace.Log("finding", map[string]any{
			"check":    f.Check,
			"subgroup": f.Subgroup,
			"expected": f.Expected,
			"observed": f.Observed,
			"lower":    f.Lower,
			"upper":    f.Upper,
			"detail":   f.Detail,
		})
	}

	out := &Outcome{
		Name:   sc.Name,
		Config: cfg,
		Model:  model,
		Result: res,
		Report: report,
	}

	if o.store != nil {
		id, err := save(ctx, o.store, out)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		out.RunID = id
		o.logger.Info("run stored", "run_id", id)
	}

	span.SetAttributes(attribute.Bool("vitaldyn.passed", report.Passed()))
	return out, nil
}

func finish(ctx context.Context, v *validation.Validator, res *driver.Result) *validation.Report {
	_, span := otel.Tracer(tracerName).Start(ctx, "validation.Finish")
	defer span.End()

	report := v.Finish(res.Log)
	span.SetAttributes(
		attribute.Int("vitaldyn.findings", len(report.Findings)),
		attribute.Int("vitaldyn.failures", len(report.Failures())),
	)
	if !report.Passed() {
		span.SetStatus(codes.Error, "validation failed")
	}
	return report
}

func save(ctx context.Context, s store.RunStore, out *Outcome) (string, error) {
	raw, err := out.Config.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	res := out.Result
	run := store.RunRecord{
		Name:            out.Name,
		Seed:            res.Seed,
		Days:            res.Days,
		Model:           out.Model.Describe(),
		Config:          string(raw),
		Births:          res.Births,
		Deaths:          res.Deaths,
		Conceptions:     res.Conceptions,
		FinalPopulation: res.FinalPopulation,
		Passed:          out.Report.Passed(),
		Elapsed:         res.Elapsed,
	}
	id, err := s.SaveRun(ctx, run, res.Log.Events(), out.Report.Findings)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}
