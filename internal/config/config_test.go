package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/forcing"
	"github.com/nvandessel/vitaldyn/internal/ratemodel"
	"github.com/nvandessel/vitaldyn/internal/ratetable"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	config := Default()

	if config.Simulation.Days != 4*constants.DaysPerYear {
		t.Errorf("expected Days 1460, got %d", config.Simulation.Days)
	}
	if config.Birth.Mode != ratemodel.FixedBirthRateName {
		t.Errorf("expected Mode %s, got %s", ratemodel.FixedBirthRateName, config.Birth.Mode)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if config.Store.Path != "" {
		t.Errorf("expected persistence disabled by default, got %q", config.Store.Path)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("expected valid default config, got error: %v", err)
	}

	model, err := config.Model()
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if got, ok := model.Birth().(ratemodel.FixedBirthRate); !ok || got.NodeRate != 0.1 {
		t.Errorf("Birth() = %#v, want FIXED_BIRTH_RATE 0.1", model.Birth())
	}
	if config.Birth.XBirth != 10 || config.Simulation.InitialPopulation != 10000 {
		t.Errorf("birth/simulation = %+v / %+v", config.Birth, config.Simulation)
	}
	male := model.MortalityTable(0)
	want := []float64{45 * 365, 85 * 365}
	if diff := cmp.Diff(want, male.AgeBreakpoints()); diff != "" {
		t.Errorf("male age breakpoints (-want +got):\n%s", diff)
	}
	if male.ScaleFactor() != 1.1 {
		t.Errorf("male scale factor = %v, want 1.1", male.ScaleFactor())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
simulation:
  days: 730
  seed: 99
  initial_population: 5000
birth:
  mode: INDIVIDUAL_PREGNANCIES_BY_AGE_AND_YEAR
  x_birth: 2
  forcing:
    kind: ANNUAL_BOXCAR_FUNCTION
    amplitude: 0.5
    start: 300
    end: 50
  fertility:
    age_breakpoints: [15, 30, 45]
    year_breakpoints: [2000, 2010]
    values:
      - [0.0001, 0.0002]
      - [0.0003, 0.0004]
      - [0.0001, 0.0001]
mortality:
  enabled: false
logging:
  level: debug
store:
  path: /tmp/runs.db
`)

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Days != 730 || config.Simulation.Seed != 99 || config.Simulation.InitialPopulation != 5000 {
		t.Errorf("simulation = %+v", config.Simulation)
	}
	if config.Simulation.BaseYear != 2000 {
		t.Errorf("omitted base_year should keep default, got %v", config.Simulation.BaseYear)
	}
	if !config.Birth.Enabled {
		t.Error("omitted birth.enabled should keep default true")
	}
	if config.Birth.Fertility.ScaleFactor != 1 {
		t.Errorf("omitted scale_factor = %v, want 1", config.Birth.Fertility.ScaleFactor)
	}
	if config.Logging.Level != "debug" || config.Store.Path != "/tmp/runs.db" {
		t.Errorf("logging/store = %+v / %+v", config.Logging, config.Store)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	model, err := config.Model()
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if model.MortalityEnabled() {
		t.Error("mortality should be disabled")
	}
	if !model.UsesPregnancies() {
		t.Error("expected pregnancy births")
	}
	if diff := cmp.Diff([]float64{15 * 365, 30 * 365, 45 * 365}, model.FertilityTable().AgeBreakpoints()); diff != "" {
		t.Errorf("fertility ages (-want +got):\n%s", diff)
	}
	box, ok := model.Forcing().(forcing.Boxcar)
	if !ok || box.Mode != forcing.Larger {
		t.Errorf("Forcing() = %#v, want wrapping boxcar", model.Forcing())
	}
}

func TestLoadFromFile_TableReplacesDefault(t *testing.T) {
	path := writeConfig(t, `
mortality:
  male:
    age_breakpoints: [0]
    year_breakpoints: [2000]
    age_axis_scale: 1
    values: [[0.001]]
`)
	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	want := &TableConfig{
		AgeBreakpoints:  []float64{0},
		YearBreakpoints: []float64{2000},
		AgeAxisScale:    1,
		ScaleFactor:     1,
		Values:          [][]float64{{0.001}},
	}
	if diff := cmp.Diff(want, config.Mortality.Male); diff != "" {
		t.Errorf("male table (-want +got):\n%s", diff)
	}
	if len(config.Mortality.Female.AgeBreakpoints) != 6 {
		t.Errorf("female table should keep default, got %+v", config.Mortality.Female)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFromFile(writeConfig(t, "simulation: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VITALDYN_DAYS", "365")
	t.Setenv("VITALDYN_SEED", "12345")
	t.Setenv("VITALDYN_BIRTH_MODE", ratemodel.PopulationDependentName)
	t.Setenv("VITALDYN_BIRTH_RATE", "0.0002")
	t.Setenv("VITALDYN_X_OTHER_MORTALITY", "0")
	t.Setenv("VITALDYN_LOG_LEVEL", "trace")
	t.Setenv("VITALDYN_DB", "/tmp/vitaldyn.db")
	t.Setenv("VITALDYN_OTEL_ENDPOINT", "http://localhost:4318")

	config := Default()
	if err := applyEnvOverrides(config); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}

	if config.Simulation.Days != 365 || config.Simulation.Seed != 12345 {
		t.Errorf("simulation = %+v", config.Simulation)
	}
	if config.Birth.Mode != ratemodel.PopulationDependentName || config.Birth.BirthRate != 0.0002 {
		t.Errorf("birth = %+v", config.Birth)
	}
	if config.Mortality.XOtherMortality != 0 {
		t.Errorf("XOtherMortality = %v, want 0", config.Mortality.XOtherMortality)
	}
	if config.Logging.Level != "trace" || config.Store.Path != "/tmp/vitaldyn.db" {
		t.Errorf("logging/store = %+v / %+v", config.Logging, config.Store)
	}
	if !config.Telemetry.Enabled || config.Telemetry.Endpoint != "http://localhost:4318" {
		t.Errorf("telemetry = %+v", config.Telemetry)
	}
	if config.Simulation.InitialPopulation != 10000 {
		t.Errorf("unset variable changed InitialPopulation to %d", config.Simulation.InitialPopulation)
	}
}

func TestEnvOverrides_ExplicitDisable(t *testing.T) {
	t.Setenv("VITALDYN_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("VITALDYN_OTEL_ENABLED", "false")

	config := Default()
	if err := applyEnvOverrides(config); err != nil {
		t.Fatal(err)
	}
	if config.Telemetry.Enabled {
		t.Error("VITALDYN_OTEL_ENABLED=false should win over an endpoint")
	}
}

func TestLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Run("defaults without a file", func(t *testing.T) {
		config, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if config.Simulation.Days != 4*constants.DaysPerYear {
			t.Errorf("Days = %d", config.Simulation.Days)
		}
	})

	t.Run("home config then env", func(t *testing.T) {
		dir := filepath.Join(home, ".vitaldyn")
		if err := os.MkdirAll(dir, 0700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("simulation:\n  days: 100\n  initial_population: 7\n"), 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("VITALDYN_DAYS", "200")

		config, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if config.Simulation.Days != 200 || config.Simulation.InitialPopulation != 7 {
			t.Errorf("simulation = %+v", config.Simulation)
		}
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("VITALDYN_SEED", "not-a-number")
		if _, err := Load(""); err == nil {
			t.Error("expected error for unparsable VITALDYN_SEED")
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		if _, err := Load(filepath.Join(home, "nope.yaml")); err == nil {
			t.Error("expected error for missing explicit path")
		}
	})
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, nil},
		{"confidence level", func(c *Config) { c.Validation.ConfidenceLevel = 1 }, nil},
		{"failure fraction", func(c *Config) { c.Validation.MaxDayFailureFraction = 0 }, nil},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled = true }, nil},
		{"unknown birth mode", func(c *Config) { c.Birth.Mode = "SOMETIMES" }, ratemodel.ErrConfig},
		{"missing fertility table", func(c *Config) { c.Birth.Mode = ratemodel.IndividualPregnanciesByAgeAndYearName }, ratemodel.ErrConfig},
		{"negative birth rate", func(c *Config) { c.Birth.BirthRate = -1 }, ratemodel.ErrConfig},
		{"inverted fertile window", func(c *Config) { c.Birth.FertileMinAgeYears = 50 }, ratemodel.ErrConfig},
		{"forcing amplitude", func(c *Config) {
			c.Birth.Forcing = ForcingConfig{Kind: string(forcing.KindSinusoidal), Amplitude: -2}
		}, forcing.ErrInvalidForcing},
		{"boxcar day out of range", func(c *Config) {
			c.Birth.Forcing = ForcingConfig{Kind: string(forcing.KindBoxcar), Amplitude: 1, Start: 10, End: 400}
		}, forcing.ErrInvalidForcing},
		{"unknown mortality mode", func(c *Config) { c.Mortality.Mode = "OLD_AGE" }, ratemodel.ErrConfig},
		{"missing female table", func(c *Config) { c.Mortality.Female = nil }, ratemodel.ErrConfig},
		{"ragged table", func(c *Config) { c.Mortality.Male.Values = [][]float64{{0.1}} }, ratetable.ErrInvalidTable},
		{"negative days", func(c *Config) { c.Simulation.Days = -1 }, nil},
		{"female fraction", func(c *Config) { c.Simulation.FemaleFraction = 2 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidate_DisabledSectionsSkipTables(t *testing.T) {
	config := Default()
	config.Birth.Enabled = false
	config.Birth.Mode = "ignored"
	config.Mortality.Enabled = false
	config.Mortality.Male = nil
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTableConfig_Build(t *testing.T) {
	var nilTable *TableConfig
	if tbl, err := nilTable.Build(); tbl != nil || err != nil {
		t.Errorf("nil Build() = %v, %v", tbl, err)
	}

	days := &TableConfig{
		AgeBreakpoints:  []float64{0, 3650},
		YearBreakpoints: []float64{1990},
		AgeAxisScale:    1,
		ScaleFactor:     2,
		Values:          [][]float64{{1}, {3}},
	}
	tbl, err := days.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := tbl.AgeInterpolated(1825, 0); got != 2 {
		t.Errorf("AgeInterpolated(1825) = %v, want 2", got)
	}

	bad := &TableConfig{AgeBreakpoints: []float64{0}, YearBreakpoints: []float64{0}, AgeAxisScale: -1, Values: [][]float64{{1}}}
	if _, err := bad.Build(); !errors.Is(err, ratetable.ErrInvalidTable) {
		t.Errorf("negative axis scale error = %v", err)
	}
}

func TestMarshal(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, want := range []string{"mode: FIXED_BIRTH_RATE", "age_breakpoints:", "level: info"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Marshal() missing %q:\n%s", want, data)
		}
	}

	path := writeConfig(t, string(data))
	again, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile(marshalled): %v", err)
	}
	if diff := cmp.Diff(Default(), again); diff != "" {
		t.Errorf("marshalled default does not load back (-want +got):\n%s", diff)
	}
}
