package ratemodel

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/forcing"
	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/ratetable"
)

const year = constants.DaysPerYear

func baseConfig() Config {
	return Config{
		XBirth:          1,
		XOtherMortality: 1,
		BaseYear:        2000,
		FertileMinDays:  15 * year,
		FertileMaxDays:  45 * year,
	}
}

func mustModel(t *testing.T, cfg Config) *Model {
	t.Helper()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12*math.Max(1, math.Abs(b))
}

func TestNew_FailsFast(t *testing.T) {
	tbl := ratetable.MustNew([]float64{0}, []float64{0}, [][]float64{{0.001}}, 1)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative x_Birth", func(c *Config) { c.XBirth = -1 }},
		{"nan x_Other_Mortality", func(c *Config) { c.XOtherMortality = math.NaN() }},
		{"empty fertile window", func(c *Config) { c.FertileMaxDays = c.FertileMinDays }},
		{"negative node rate", func(c *Config) { c.Birth = FixedBirthRate{NodeRate: -0.1} }},
		{"age-year without table", func(c *Config) { c.Birth = IndividualPregnanciesByAgeAndYear{} }},
		{"mortality without female table", func(c *Config) { c.Mortality = MortalityByAgeAndSex{Male: tbl} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrConfig) {
				t.Errorf("New() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestParseBirthMode(t *testing.T) {
	fert := ratetable.MustNew([]float64{0}, []float64{0}, [][]float64{{0.001}}, 1)
	tests := []struct {
		name    string
		table   *ratetable.Table
		want    string
		wantErr bool
	}{
		{FixedBirthRateName, nil, FixedBirthRateName, false},
		{"population_dep_rate", nil, PopulationDependentName, false},
		{DemographicDependentName, nil, DemographicDependentName, false},
		{IndividualPregnanciesName, nil, IndividualPregnanciesName, false},
		{IndividualPregnanciesByAgeAndYearName, fert, IndividualPregnanciesByAgeAndYearName, false},
		{IndividualPregnanciesByAgeAndYearName, nil, "", true},
		{"NOT_A_MODE", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseBirthMode(tt.name, 0.001, tt.table)
			if tt.wantErr {
				if !errors.Is(err, ErrConfig) {
					t.Fatalf("ParseBirthMode() error = %v, want ErrConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBirthMode() error = %v", err)
			}
			if m.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", m.Name(), tt.want)
			}
		})
	}
}

func TestParseMortalityMode(t *testing.T) {
	tbl := ratetable.MustNew([]float64{0}, []float64{0}, [][]float64{{0.001}}, 1)
	if _, err := ParseMortalityMode(MortalityByAgeAndSexName, tbl, tbl); err != nil {
		t.Errorf("by age and sex: %v", err)
	}
	if _, err := ParseMortalityMode(MortalityByYearAndAgeForEachSexName, tbl, nil); !errors.Is(err, ErrConfig) {
		t.Errorf("missing table: error = %v, want ErrConfig", err)
	}
	if _, err := ParseMortalityMode("BY_MOON_PHASE", tbl, tbl); !errors.Is(err, ErrConfig) {
		t.Errorf("unknown mode: error = %v, want ErrConfig", err)
	}
}

func TestPerCapitaRate_UnitSwitch(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.001, 0.001},
		{constants.BirthRateSanityThreshold, constants.BirthRateSanityThreshold},
		{0.01, 0.01 * constants.TwoPercentPerYear},
		{20, 20 * constants.TwoPercentPerYear},
	}
	for _, tt := range tests {
		if got := PerCapitaRate(tt.in); !near(got, tt.want) {
			t.Errorf("PerCapitaRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBirthRate_Modes(t *testing.T) {
	snap := models.Snapshot{Day: 10, SimYear: 2000, Total: 1000, PossibleMothers: 200}
	tests := []struct {
		name  string
		birth BirthMode
		x     float64
		want  float64
	}{
		{"fixed", FixedBirthRate{NodeRate: 0.1}, 10, 1.0},
		{"fixed above threshold is not rescaled", FixedBirthRate{NodeRate: 2}, 1, 2},
		{"population dependent", PopulationDependent{NodeRate: 0.005}, 1, 5},
		{"population dependent rescaled", PopulationDependent{NodeRate: 0.5}, 2, 2 * 1000 * 0.5 * constants.TwoPercentPerYear},
		{"demographic dependent", DemographicDependent{NodeRate: 0.001}, 3, 3 * 200 * 0.001},
		{"individual pregnancies", IndividualPregnancies{NodeRate: 0.001}, 2, 2 * 200 * 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Birth = tt.birth
			cfg.XBirth = tt.x
			m := mustModel(t, cfg)
			if got := m.BirthRate(snap); !near(got, tt.want) {
				t.Errorf("BirthRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBirthRate_ForcingAppliesToAggregateModesOnly(t *testing.T) {
	boost, err := forcing.NewBoxcar(1, 0, 364)
	if err != nil {
		t.Fatalf("NewBoxcar: %v", err)
	}
	fert := ratetable.MustNew([]float64{0}, []float64{0}, [][]float64{{0.001}}, 1)

	cfg := baseConfig()
	cfg.Forcing = boost
	cfg.Birth = DemographicDependent{NodeRate: 0.001}
	m := mustModel(t, cfg)
	snap := models.Snapshot{PossibleMothers: 100, MotherAges: make([]int, 100)}
	if got := m.BirthRate(snap); !near(got, 0.2) {
		t.Errorf("forced demographic BirthRate() = %v, want 0.2", got)
	}

	cfg.Birth = IndividualPregnanciesByAgeAndYear{Fertility: fert}
	m = mustModel(t, cfg)
	if got := m.BirthRate(snap); !near(got, 0.1) {
		t.Errorf("age-year BirthRate() = %v, want 0.1 (unforced)", got)
	}
}

func TestBirthRate_ByAgeAndYearSumsMothers(t *testing.T) {
	fert := ratetable.MustNew(
		[]float64{20 * year, 30 * year},
		[]float64{2000, 2010},
		[][]float64{{0.001, 0.002}, {0.003, 0.004}},
		0.5,
	)
	cfg := baseConfig()
	cfg.Birth = IndividualPregnanciesByAgeAndYear{Fertility: fert}
	cfg.XBirth = 2
	m := mustModel(t, cfg)

	snap := models.Snapshot{
		SimYear:         2000,
		PossibleMothers: 3,
		MotherAges:      []int{20 * year, 25 * year, 30 * year},
	}
	// Rates 0.001, 0.002 (interpolated), 0.003; times x=2 and scale=0.5.
	if got := m.BirthRate(snap); !near(got, 0.006) {
		t.Errorf("BirthRate() = %v, want 0.006", got)
	}
	if got := m.ConceptionProbability(0, 25*year, 2005); !near(got, 0.003) {
		t.Errorf("ConceptionProbability(25y, 2005) = %v, want 0.003", got)
	}
	if got := m.ConceptionProbability(0, 25*year, 2100); !near(got, 0.003) {
		t.Errorf("ConceptionProbability(25y, 2100) = %v, want 0.003 (last column)", got)
	}
}

func TestConceptionProbability_NodeModesAreZero(t *testing.T) {
	cfg := baseConfig()
	cfg.Birth = PopulationDependent{NodeRate: 0.001}
	m := mustModel(t, cfg)
	if got := m.ConceptionProbability(0, 20*year, 2000); got != 0 {
		t.Errorf("ConceptionProbability() = %v, want 0", got)
	}
	if m.UsesPregnancies() {
		t.Error("UsesPregnancies() = true for a node-level mode")
	}
}

func TestMortalityHazard(t *testing.T) {
	male := ratetable.MustNew([]float64{0, 10 * year}, []float64{2000, 2010}, [][]float64{{0.001, 0.003}, {0.002, 0.004}}, 1)
	female := ratetable.MustNew([]float64{0, 10 * year}, []float64{2000, 2010}, [][]float64{{0.0005, 0.0005}, {0.0005, 0.0005}}, 2)

	cfg := baseConfig()
	cfg.XOtherMortality = 3
	cfg.Mortality = MortalityByAgeAndSex{Male: male, Female: female}
	m := mustModel(t, cfg)
	if got := m.MortalityHazard(5*year, models.Male, 2010); !near(got, 3*0.0015) {
		t.Errorf("by age and sex, male = %v, want %v", got, 3*0.0015)
	}
	if got := m.MortalityHazard(5*year, models.Female, 2000); !near(got, 3*2*0.0005) {
		t.Errorf("by age and sex, female = %v, want %v", got, 3*2*0.0005)
	}

	cfg.Mortality = MortalityByYearAndAgeForEachSex{Male: male, Female: female}
	m = mustModel(t, cfg)
	if got := m.MortalityHazard(5*year, models.Male, 2005); !near(got, 3*0.0025) {
		t.Errorf("by year, male = %v, want %v", got, 3*0.0025)
	}
	if got := m.MortalityHazard(5*year, models.Male, 2050); !near(got, 3*0.0035) {
		t.Errorf("by year clamped, male = %v, want %v", got, 3*0.0035)
	}
}

func TestMortalityHazard_ClampedToProbability(t *testing.T) {
	tbl := ratetable.MustNew([]float64{0}, []float64{0}, [][]float64{{0.5}}, 1)
	cfg := baseConfig()
	cfg.XOtherMortality = 10
	cfg.Mortality = MortalityByAgeAndSex{Male: tbl, Female: tbl}
	m := mustModel(t, cfg)
	if got := m.MortalityHazard(100, models.Female, 2000); got != 1 {
		t.Errorf("MortalityHazard() = %v, want 1", got)
	}
}

func TestMortalityHazard_Disabled(t *testing.T) {
	m := mustModel(t, baseConfig())
	if got := m.MortalityHazard(80*year, models.Male, 2000); got != 0 {
		t.Errorf("MortalityHazard() = %v, want 0", got)
	}
	if m.MortalityEnabled() || m.BirthsEnabled() {
		t.Error("empty config reports enabled processes")
	}
}

func TestIsPossibleMother(t *testing.T) {
	m := mustModel(t, baseConfig())
	tests := []struct {
		name string
		ind  models.Individual
		want bool
	}{
		{"fertile female", models.Individual{Sex: models.Female, AgeDays: 20 * year}, true},
		{"lower bound inclusive", models.Individual{Sex: models.Female, AgeDays: 15 * year}, true},
		{"upper bound exclusive", models.Individual{Sex: models.Female, AgeDays: 45 * year}, false},
		{"too young", models.Individual{Sex: models.Female, AgeDays: 10 * year}, false},
		{"male", models.Individual{Sex: models.Male, AgeDays: 20 * year}, false},
		{"pregnant", models.Individual{Sex: models.Female, AgeDays: 20 * year, Pregnant: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.IsPossibleMother(tt.ind); got != tt.want {
				t.Errorf("IsPossibleMother() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimYear(t *testing.T) {
	m := mustModel(t, baseConfig())
	if got := m.SimYear(3 * year); got != 2003 {
		t.Errorf("SimYear(3y) = %v, want 2003", got)
	}
}
