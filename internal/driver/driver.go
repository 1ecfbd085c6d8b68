package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/engine"
	"github.com/nvandessel/vitaldyn/internal/logging"
	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/ratemodel"
)

const tracerName = "github.com/nvandessel/vitaldyn/internal/driver"

var (
	// ErrAlreadyRun is returned when Run is called more than once.
	ErrAlreadyRun = errors.New("driver has already run")

	// ErrInvalidConfig is returned (wrapped) by New for a bad Config.
	ErrInvalidConfig = errors.New("invalid driver configuration")
)

// State is the lifecycle state of a Driver.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DayObserver receives every simulated day. The snapshot describes the
// population at the start of the day; events are everything logged that day.
type DayObserver interface {
	ObserveDay(snap models.Snapshot, events []models.Event)
}

// Config sizes a run and its initial population.
type Config struct {
	Days              int
	InitialPopulation int
	// Initial ages are drawn uniformly from [MinAgeYears, MaxAgeYears).
	MinAgeYears    float64
	MaxAgeYears    float64
	FemaleFraction float64
	MCW            float64
}

// Validate checks c for values the driver cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Days < 0:
		return fmt.Errorf("%w: days must be >= 0, got %d", ErrInvalidConfig, c.Days)
	case c.InitialPopulation < 0:
		return fmt.Errorf("%w: initial population must be >= 0, got %d", ErrInvalidConfig, c.InitialPopulation)
	case c.MinAgeYears < 0 || c.MaxAgeYears < c.MinAgeYears:
		return fmt.Errorf("%w: initial age range [%v, %v) is invalid", ErrInvalidConfig, c.MinAgeYears, c.MaxAgeYears)
	case c.FemaleFraction < 0 || c.FemaleFraction > 1:
		return fmt.Errorf("%w: female fraction must be in [0, 1], got %v", ErrInvalidConfig, c.FemaleFraction)
	case !(c.MCW > 0):
		return fmt.Errorf("%w: mcw must be > 0, got %v", ErrInvalidConfig, c.MCW)
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	Seed            uint64
	Days            int
	Log             *models.EventLog
	Births          int
	Deaths          int
	Conceptions     int
	FinalPopulation int
	OpenPregnancies int
	Elapsed         time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithSeed sets the seed for every draw in the run. Zero selects a random
// seed, which is logged and reported in the Result.
func WithSeed(seed uint64) Option {
	return func(d *Driver) { d.seed = seed }
}

// WithObserver adds an observer called at the end of every day.
func WithObserver(o DayObserver) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithTraceLogger writes a JSONL record per simulated day.
func WithTraceLogger(tl *logging.TraceLogger) Option {
	return func(d *Driver) { d.trace = tl }
}

// Driver runs one simulation.
type Driver struct {
	model     *ratemodel.Model
	cfg       Config
	seed      uint64
	observers []DayObserver
	logger    *slog.Logger
	trace     *logging.TraceLogger
	tracer    trace.Tracer

	state State
	rec   *engine.Recorder
	src   *source
}

// New returns an idle Driver.
func New(model *ratemodel.Model, cfg Config, opts ...Option) (*Driver, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil rate model", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		model:  model,
		cfg:    cfg,
		logger: logging.Discard(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// State returns the lifecycle state.
func (d *Driver) State() State { return d.state }

// Recorder returns the run's recorder, or nil before Run.
func (d *Driver) Recorder() *engine.Recorder { return d.rec }

// Run executes the configured number of days. The context carries tracing
// only; a run is not cancellable once started.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.state != Idle {
		return nil, ErrAlreadyRun
	}
	d.state = Running
	defer func() { d.state = Finished }()

	if d.seed == 0 {
		seed, err := NewSeed()
		if err != nil {
			return nil, err
		}
		d.seed = seed
		d.logger.Info("generated random seed", "seed", seed)
	}

	_, span := d.tracer.Start(ctx, "driver.Run", trace.WithAttributes(
		attribute.Int64("vitaldyn.seed", int64(d.seed)),
		attribute.Int("vitaldyn.days", d.cfg.Days),
		attribute.Int("vitaldyn.initial_population", d.cfg.InitialPopulation),
		attribute.String("vitaldyn.model", d.model.Describe()),
	))
	defer span.End()

	start := time.Now()
	d.src = newSource(d.seed)
	d.rec = engine.NewRecorder(d.model)

	d.logger.Info("starting run",
		"seed", d.seed,
		"days", d.cfg.Days,
		"initial_population", d.cfg.InitialPopulation,
		"model", d.model.Describe())

	if err := d.populate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "setup failed")
		return nil, err
	}

	for day := 0; day < d.cfg.Days; day++ {
		if err := d.step(day); err != nil {
			err = fmt.Errorf("day %d: %w", day, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "run aborted")
			return nil, err
		}
		if (day+1)%constants.DaysPerYear == 0 {
			d.logger.Debug("simulated year",
				"year", (day+1)/constants.DaysPerYear,
				"population", d.rec.Registry().Len(),
				"pregnant", d.rec.Tracker().Open())
		}
	}

	log := d.rec.Log()
	res := &Result{
		Seed:            d.seed,
		Days:            d.cfg.Days,
		Log:             log,
		Births:          log.Count(models.EventBirth),
		Deaths:          log.Count(models.EventDeath),
		Conceptions:     log.Count(models.EventConception),
		FinalPopulation: d.rec.Registry().Len(),
		OpenPregnancies: d.rec.Tracker().Open(),
		Elapsed:         time.Since(start),
	}
	span.SetAttributes(
		attribute.Int("vitaldyn.births", res.Births),
		attribute.Int("vitaldyn.deaths", res.Deaths),
		attribute.Int("vitaldyn.final_population", res.FinalPopulation),
	)
	d.logger.Info("run finished",
		"births", res.Births,
		"deaths", res.Deaths,
		"conceptions", res.Conceptions,
		"final_population", res.FinalPopulation,
		"elapsed", res.Elapsed)
	return res, nil
}

func (d *Driver) populate() error {
	ages := distuv.Uniform{
		Min: d.cfg.MinAgeYears * constants.DaysPerYear,
		Max: d.cfg.MaxAgeYears * constants.DaysPerYear,
		Src: d.src,
	}
	for i := 0; i < d.cfg.InitialPopulation; i++ {
		age := int(d.cfg.MinAgeYears * constants.DaysPerYear)
		if ages.Max > ages.Min {
			age = int(ages.Rand())
		}
		sex := d.drawSex(d.cfg.FemaleFraction)
		if _, err := d.rec.OnCreate(d.cfg.MCW, age, sex); err != nil {
			return fmt.Errorf("create initial individual %d: %w", i, err)
		}
	}
	return nil
}

func (d *Driver) step(day int) error {
	if err := d.rec.BeginDay(day); err != nil {
		return err
	}
	snap := d.rec.Snapshot()

	if err := d.births(snap); err != nil {
		return err
	}
	if err := d.deaths(snap); err != nil {
		return err
	}

	deliveries, err := d.rec.DeliverDue()
	if err != nil {
		return err
	}
	for _, del := range deliveries {
		if _, err := d.rec.OnCreate(del.Weight, 0, d.drawSex(0.5)); err != nil {
			return fmt.Errorf("newborn of %d: %w", del.Mother, err)
		}
	}

	d.rec.Registry().AgeAll(1)

	events, err := d.rec.EndDay()
	if err != nil {
		return err
	}
	for _, o := range d.observers {
		o.ObserveDay(snap, events)
	}

	if d.logger.Enabled(context.Background(), logging.LevelTrace) || d.trace != nil {
		var births, deaths, conceptions int
		for _, e := range events {
			switch e.Type {
			case models.EventBirth:
				births++
			case models.EventDeath:
				deaths++
			case models.EventConception:
				conceptions++
			}
		}
		d.logger.Log(context.Background(), logging.LevelTrace, "day",
			"day", day, "population", snap.Total, "births", births,
			"deaths", deaths, "conceptions", conceptions)
		d.trace.Log("day", map[string]any{
			"day":              day,
			"population":       snap.Total,
			"possible_mothers": snap.PossibleMothers,
			"pregnant":         snap.Pregnant,
			"births":           births,
			"deaths":           deaths,
			"conceptions":      conceptions,
		})
	}
	return nil
}

func (d *Driver) births(snap models.Snapshot) error {
	if !d.model.BirthsEnabled() {
		return nil
	}

	if d.model.UsesPregnancies() {
		type candidate struct {
			id  models.ID
			age int
		}
		var mothers []candidate
		d.rec.Registry().Each(func(ind models.Individual) {
			if d.model.IsPossibleMother(ind) {
				mothers = append(mothers, candidate{ind.ID, ind.AgeDays})
			}
		})
		for _, m := range mothers {
			p := d.model.ConceptionProbability(snap.Day, m.age, snap.SimYear)
			if !d.bernoulli(p) {
				continue
			}
			if err := d.rec.OnConceive(m.id, constants.GestationDays); err != nil {
				return err
			}
		}
		return nil
	}

	rate := d.model.BirthRate(snap)
	if rate <= 0 {
		return nil
	}
	n := int(distuv.Poisson{Lambda: rate, Src: d.src}.Rand())
	for i := 0; i < n; i++ {
		if _, err := d.rec.OnCreate(d.cfg.MCW, 0, d.drawSex(0.5)); err != nil {
			return err
		}
	}
	return nil
}

// deaths draws mortality for everyone alive at the start of the day.
func (d *Driver) deaths(snap models.Snapshot) error {
	if !d.model.MortalityEnabled() {
		return nil
	}
	for _, m := range snap.Members {
		p := d.rec.OnMortalityQuery(m.AgeDays, m.Sex, snap.SimYear)
		if !d.bernoulli(p) {
			continue
		}
		if err := d.rec.RecordDeath(m.ID); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	return distuv.Bernoulli{P: p, Src: d.src}.Rand() == 1
}

func (d *Driver) drawSex(femaleFraction float64) models.Sex {
	if d.bernoulli(femaleFraction) {
		return models.Female
	}
	return models.Male
}
