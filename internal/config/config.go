// Package config provides unified configuration loading for vitaldyn.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/driver"
	"github.com/nvandessel/vitaldyn/internal/forcing"
	"github.com/nvandessel/vitaldyn/internal/ratemodel"
	"github.com/nvandessel/vitaldyn/internal/ratetable"
	"github.com/nvandessel/vitaldyn/internal/validation"
)

// Config contains all vitaldyn configuration settings.
type Config struct {
	// Simulation sizes the run and its initial population.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Birth selects the birth-rate dependence.
	Birth BirthConfig `json:"birth" yaml:"birth"`

	// Mortality selects the non-disease mortality dependence.
	Mortality MortalityConfig `json:"mortality" yaml:"mortality"`

	// Validation tunes the statistical acceptance tests.
	Validation ValidationConfig `json:"validation" yaml:"validation"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures run persistence.
	Store StoreConfig `json:"store" yaml:"store"`

	// Telemetry configures OpenTelemetry trace export.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// SimulationConfig sizes a run.
type SimulationConfig struct {
	// Days is the number of simulated days.
	Days int `json:"days" yaml:"days"`

	// Seed fixes every random draw. 0 picks a random seed per run.
	Seed uint64 `json:"seed" yaml:"seed"`

	// BaseYear is the calendar year of day 0.
	BaseYear float64 `json:"base_year" yaml:"base_year"`

	InitialPopulation  int     `json:"initial_population" yaml:"initial_population"`
	FemaleFraction     float64 `json:"female_fraction" yaml:"female_fraction"`
	InitialMinAgeYears float64 `json:"initial_min_age_years" yaml:"initial_min_age_years"`
	InitialMaxAgeYears float64 `json:"initial_max_age_years" yaml:"initial_max_age_years"`

	// MCW is the sampling weight of every individual.
	MCW float64 `json:"mcw" yaml:"mcw"`
}

// BirthConfig selects the birth-rate dependence.
type BirthConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Mode is one of FIXED_BIRTH_RATE, POPULATION_DEP_RATE,
	// DEMOGRAPHIC_DEP_RATE, INDIVIDUAL_PREGNANCIES or
	// INDIVIDUAL_PREGNANCIES_BY_AGE_AND_YEAR.
	Mode string `json:"mode" yaml:"mode"`

	// BirthRate is the node birth rate. Values above 0.005 are read as
	// annual percentages by the per-capita modes.
	BirthRate float64 `json:"birth_rate" yaml:"birth_rate"`

	XBirth float64 `json:"x_birth" yaml:"x_birth"`

	FertileMinAgeYears float64 `json:"fertile_min_age_years" yaml:"fertile_min_age_years"`
	FertileMaxAgeYears float64 `json:"fertile_max_age_years" yaml:"fertile_max_age_years"`

	Forcing ForcingConfig `json:"forcing" yaml:"forcing"`

	// Fertility is required by INDIVIDUAL_PREGNANCIES_BY_AGE_AND_YEAR.
	Fertility *TableConfig `json:"fertility,omitempty" yaml:"fertility,omitempty"`
}

// ForcingConfig selects seasonal forcing of the aggregate birth modes.
type ForcingConfig struct {
	// Kind is NONE, SINUSOIDAL_FUNCTION_OF_TIME or ANNUAL_BOXCAR_FUNCTION.
	Kind      string  `json:"kind" yaml:"kind"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Phase     float64 `json:"phase" yaml:"phase"`
	Start     float64 `json:"start" yaml:"start"`
	End       float64 `json:"end" yaml:"end"`
}

// MortalityConfig selects the non-disease mortality dependence.
type MortalityConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Mode is NONDISEASE_MORTALITY_BY_AGE_AND_GENDER or
	// NONDISEASE_MORTALITY_BY_YEAR_AND_AGE_FOR_EACH_GENDER.
	Mode string `json:"mode" yaml:"mode"`

	XOtherMortality float64 `json:"x_other_mortality" yaml:"x_other_mortality"`

	Male   *TableConfig `json:"male,omitempty" yaml:"male,omitempty"`
	Female *TableConfig `json:"female,omitempty" yaml:"female,omitempty"`
}

// TableConfig is a rate table in demographics-file layout: one row of
// values per age breakpoint, one column per year breakpoint.
type TableConfig struct {
	AgeBreakpoints  []float64 `json:"age_breakpoints" yaml:"age_breakpoints"`
	YearBreakpoints []float64 `json:"year_breakpoints" yaml:"year_breakpoints"`

	// AgeAxisScale multiplies age breakpoints into days. Defaults to 365
	// (breakpoints in years); use 1 for breakpoints already in days.
	AgeAxisScale float64 `json:"age_axis_scale,omitempty" yaml:"age_axis_scale,omitempty"`

	ScaleFactor float64     `json:"scale_factor" yaml:"scale_factor"`
	Values      [][]float64 `json:"values" yaml:"values"`
}

// ValidationConfig tunes the acceptance tests.
type ValidationConfig struct {
	ConfidenceLevel       float64 `json:"confidence_level" yaml:"confidence_level"`
	MaxDayFailureFraction float64 `json:"max_day_failure_fraction" yaml:"max_day_failure_fraction"`
}

// LoggingConfig configures vitaldyn's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "error", "warn", "info" (default),
	// "debug" or "trace". "debug" and "trace" also write trace.jsonl into Dir.
	Level string `json:"level" yaml:"level"`

	// Dir receives trace.jsonl. Defaults to the directory of the store.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	// Path is the SQLite database. Empty disables persistence.
	Path string `json:"path" yaml:"path"`
}

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Default returns a Config with sensible defaults: four years of fixed-rate
// births (0.1 x 10 per day) in a population of 10000 with age- and
// sex-dependent mortality. Every total it validates expects several hundred
// events, so a correct engine passes on nearly every seed.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Days:               4 * constants.DaysPerYear,
			BaseYear:           2000,
			InitialPopulation:  10000,
			FemaleFraction:     constants.DefaultFemaleFraction,
			InitialMinAgeYears: 0,
			InitialMaxAgeYears: 60,
			MCW:                constants.DefaultMCW,
		},
		Birth: BirthConfig{
			Enabled:            true,
			Mode:               ratemodel.FixedBirthRateName,
			BirthRate:          0.1,
			XBirth:             10,
			FertileMinAgeYears: constants.DefaultFertileMinYears,
			FertileMaxAgeYears: constants.DefaultFertileMaxYears,
			Forcing:            ForcingConfig{Kind: string(forcing.KindNone)},
		},
		Mortality: MortalityConfig{
			Enabled:         true,
			Mode:            ratemodel.MortalityByAgeAndSexName,
			XOtherMortality: 1,
			Male:            defaultMortality(1.1),
			Female:          defaultMortality(1),
		},
		Validation: ValidationConfig{
			ConfidenceLevel:       constants.DefaultConfidenceLevel,
			MaxDayFailureFraction: constants.MaxDayFailureFraction,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultMortality(scale float64) *TableConfig {
	return &TableConfig{
		AgeBreakpoints:  []float64{45, 85},
		YearBreakpoints: []float64{2000},
		ScaleFactor:     scale,
		Values:          [][]float64{{0.0001}, {0.0003}},
	}
}

// DefaultPath returns ~/.vitaldyn/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".vitaldyn", "config.yaml"), nil
}

// Load loads configuration and applies environment overrides.
// Order: defaults -> path (or ~/.vitaldyn/config.yaml when path is empty and
// the file exists) -> environment variables.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		if p, err := DefaultPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the
// defaults. Sections the file omits keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks that the configuration can build a model and a driver.
func (c *Config) Validate() error {
	var errs []error

	validLevels := map[string]bool{"error": true, "warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace, or empty for default)", c.Logging.Level))
	}
	if l := c.Validation.ConfidenceLevel; l <= 0 || l >= 1 {
		errs = append(errs, fmt.Errorf("confidence_level must be in (0, 1), got %v", l))
	}
	if f := c.Validation.MaxDayFailureFraction; f <= 0 || f > 1 {
		errs = append(errs, fmt.Errorf("max_day_failure_fraction must be in (0, 1], got %v", f))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry is enabled without an endpoint"))
	}
	if _, err := c.Model(); err != nil {
		errs = append(errs, err)
	}
	if err := c.DriverConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Model builds the rate model.
func (c *Config) Model() (*ratemodel.Model, error) {
	mc, err := c.ModelConfig()
	if err != nil {
		return nil, err
	}
	return ratemodel.New(mc)
}

// ModelConfig converts the birth and mortality sections to a ratemodel.Config.
func (c *Config) ModelConfig() (ratemodel.Config, error) {
	mc := ratemodel.Config{
		XBirth:          c.Birth.XBirth,
		XOtherMortality: c.Mortality.XOtherMortality,
		BaseYear:        c.Simulation.BaseYear,
		FertileMinDays:  int(c.Birth.FertileMinAgeYears * constants.DaysPerYear),
		FertileMaxDays:  int(c.Birth.FertileMaxAgeYears * constants.DaysPerYear),
	}

	if c.Birth.Enabled {
		fertility, err := c.Birth.Fertility.Build()
		if err != nil {
			return mc, fmt.Errorf("fertility table: %w", err)
		}
		mode, err := ratemodel.ParseBirthMode(c.Birth.Mode, c.Birth.BirthRate, fertility)
		if err != nil {
			return mc, err
		}
		mc.Birth = mode

		f := c.Birth.Forcing
		mc.Forcing, err = forcing.New(forcing.Kind(f.Kind), forcing.Params{
			Amplitude: f.Amplitude,
			Phase:     f.Phase,
			Start:     f.Start,
			End:       f.End,
		})
		if err != nil {
			return mc, err
		}
	}

	if c.Mortality.Enabled {
		male, err := c.Mortality.Male.Build()
		if err != nil {
			return mc, fmt.Errorf("male mortality table: %w", err)
		}
		female, err := c.Mortality.Female.Build()
		if err != nil {
			return mc, fmt.Errorf("female mortality table: %w", err)
		}
		mode, err := ratemodel.ParseMortalityMode(c.Mortality.Mode, male, female)
		if err != nil {
			return mc, err
		}
		mc.Mortality = mode
	}
	return mc, nil
}

// DriverConfig converts the simulation section to a driver.Config.
func (c *Config) DriverConfig() driver.Config {
	s := c.Simulation
	return driver.Config{
		Days:              s.Days,
		InitialPopulation: s.InitialPopulation,
		MinAgeYears:       s.InitialMinAgeYears,
		MaxAgeYears:       s.InitialMaxAgeYears,
		FemaleFraction:    s.FemaleFraction,
		MCW:               s.MCW,
	}
}

// ValidationOptions converts the validation section.
func (c *Config) ValidationOptions() validation.Options {
	return validation.Options{
		ConfidenceLevel:       c.Validation.ConfidenceLevel,
		MaxDayFailureFraction: c.Validation.MaxDayFailureFraction,
	}
}

// UnmarshalYAML decodes a table in full, replacing any default table.
// An omitted scale_factor means 1.
func (t *TableConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain TableConfig
	raw := plain{ScaleFactor: 1}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*t = TableConfig(raw)
	return nil
}

// Build converts t to a rate table with its age axis in days. A nil
// TableConfig builds a nil table.
func (t *TableConfig) Build() (*ratetable.Table, error) {
	if t == nil {
		return nil, nil
	}
	scale := t.AgeAxisScale
	if scale == 0 {
		scale = constants.DefaultAgeAxisScale
	}
	if scale < 0 {
		return nil, fmt.Errorf("%w: age_axis_scale must be positive, got %v", ratetable.ErrInvalidTable, scale)
	}
	ages := make([]float64, len(t.AgeBreakpoints))
	for i, a := range t.AgeBreakpoints {
		ages[i] = a * scale
	}
	return ratetable.New(ages, t.YearBreakpoints, t.Values, t.ScaleFactor)
}
