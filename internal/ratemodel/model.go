// Package ratemodel turns a birth-rate dependence, a mortality dependence and
// optional seasonal forcing into daily birth rates and mortality hazards.
//
// A Model is built once per run and never changes. Every configuration
// problem is reported by New; no method returns an error.
package ratemodel

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/forcing"
	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/ratetable"
)

// ErrConfig is returned (wrapped) for every construction failure.
var ErrConfig = errors.New("invalid rate model configuration")

// Config describes a rate model.
type Config struct {
	// Birth is nil when births are disabled.
	Birth BirthMode
	// Mortality is nil when natural mortality is disabled.
	Mortality MortalityMode

	XBirth          float64
	XOtherMortality float64

	// Forcing applies to the aggregate birth modes only. Nil means none.
	Forcing forcing.Forcing

	// BaseYear is the calendar year of simulation day 0.
	BaseYear float64

	// FertileMinDays and FertileMaxDays bound the possible-mother window,
	// [min, max) in days of age.
	FertileMinDays int
	FertileMaxDays int
}

// Model is an immutable, validated rate model.
type Model struct {
	cfg Config
}

// New validates cfg and returns a Model.
func New(cfg Config) (*Model, error) {
	if cfg.XBirth < 0 || math.IsNaN(cfg.XBirth) || math.IsInf(cfg.XBirth, 0) {
		return nil, fmt.Errorf("%w: x_Birth must be a non-negative finite number, got %v", ErrConfig, cfg.XBirth)
	}
	if cfg.XOtherMortality < 0 || math.IsNaN(cfg.XOtherMortality) || math.IsInf(cfg.XOtherMortality, 0) {
		return nil, fmt.Errorf("%w: x_Other_Mortality must be a non-negative finite number, got %v", ErrConfig, cfg.XOtherMortality)
	}
	if cfg.FertileMinDays < 0 || cfg.FertileMaxDays <= cfg.FertileMinDays {
		return nil, fmt.Errorf("%w: fertile window [%d, %d) days is empty", ErrConfig, cfg.FertileMinDays, cfg.FertileMaxDays)
	}

	switch b := cfg.Birth.(type) {
	case nil:
	case FixedBirthRate:
		if err := checkNodeRate(b.NodeRate); err != nil {
			return nil, err
		}
	case PopulationDependent:
		if err := checkNodeRate(b.NodeRate); err != nil {
			return nil, err
		}
	case DemographicDependent:
		if err := checkNodeRate(b.NodeRate); err != nil {
			return nil, err
		}
	case IndividualPregnancies:
		if err := checkNodeRate(b.NodeRate); err != nil {
			return nil, err
		}
	case IndividualPregnanciesByAgeAndYear:
		if b.Fertility == nil {
			return nil, fmt.Errorf("%w: %s requires a fertility table", ErrConfig, b.Name())
		}
	default:
		return nil, fmt.Errorf("%w: unsupported birth mode %T", ErrConfig, cfg.Birth)
	}

	if cfg.Mortality != nil {
		male, female := cfg.Mortality.tables()
		if male == nil || female == nil {
			return nil, fmt.Errorf("%w: %s requires male and female mortality tables", ErrConfig, cfg.Mortality.Name())
		}
	}

	if cfg.Forcing == nil {
		cfg.Forcing = forcing.None{}
	}
	return &Model{cfg: cfg}, nil
}

func checkNodeRate(r float64) error {
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: birth rate must be a non-negative finite number, got %v", ErrConfig, r)
	}
	return nil
}

// PerCapitaRate applies the birth-rate unit convention: values above
// BirthRateSanityThreshold are read under the annual-percentage convention
// and multiplied by TwoPercentPerYear.
func PerCapitaRate(nodeRate float64) float64 {
	if nodeRate > constants.BirthRateSanityThreshold {
		return nodeRate * constants.TwoPercentPerYear
	}
	return nodeRate
}

// Birth returns the birth mode, or nil when births are disabled.
func (m *Model) Birth() BirthMode { return m.cfg.Birth }

// Mortality returns the mortality mode, or nil when mortality is disabled.
func (m *Model) Mortality() MortalityMode { return m.cfg.Mortality }

// BirthsEnabled reports whether any birth mode is configured.
func (m *Model) BirthsEnabled() bool { return m.cfg.Birth != nil }

// MortalityEnabled reports whether a mortality mode is configured.
func (m *Model) MortalityEnabled() bool { return m.cfg.Mortality != nil }

// UsesPregnancies reports whether births arise from individual conceptions
// followed by gestation rather than from node-level draws.
func (m *Model) UsesPregnancies() bool {
	switch m.cfg.Birth.(type) {
	case IndividualPregnancies, IndividualPregnanciesByAgeAndYear:
		return true
	}
	return false
}

// Forcing returns the seasonal forcing function.
func (m *Model) Forcing() forcing.Forcing { return m.cfg.Forcing }

// FertileWindow returns the possible-mother age window [min, max) in days.
func (m *Model) FertileWindow() (minDays, maxDays int) {
	return m.cfg.FertileMinDays, m.cfg.FertileMaxDays
}

// SimYear converts a simulation day to a calendar year.
func (m *Model) SimYear(day int) float64 {
	return m.cfg.BaseYear + float64(day)/constants.DaysPerYear
}

// IsPossibleMother reports whether ind can conceive today.
func (m *Model) IsPossibleMother(ind models.Individual) bool {
	return ind.Sex == models.Female &&
		!ind.Pregnant &&
		ind.AgeDays >= m.cfg.FertileMinDays &&
		ind.AgeDays < m.cfg.FertileMaxDays
}

// BirthRate returns the expected number of births on the snapshot's day for
// node-level modes, or the expected number of conceptions for pregnancy modes.
func (m *Model) BirthRate(snap models.Snapshot) float64 {
	x := m.cfg.XBirth
	f := m.cfg.Forcing.Multiplier(snap.Day)
	switch b := m.cfg.Birth.(type) {
	case FixedBirthRate:
		// NodeRate is births per day here; the 0.005 unit switch does not apply.
		return b.NodeRate * x * f
	case PopulationDependent:
		return x * float64(snap.Total) * PerCapitaRate(b.NodeRate) * f
	case DemographicDependent:
		return x * float64(snap.PossibleMothers) * PerCapitaRate(b.NodeRate) * f
	case IndividualPregnancies:
		return float64(snap.PossibleMothers) * m.ConceptionProbability(snap.Day, 0, snap.SimYear)
	case IndividualPregnanciesByAgeAndYear:
		total := 0.0
		for _, age := range snap.MotherAges {
			total += m.ConceptionProbability(snap.Day, age, snap.SimYear)
		}
		return total
	}
	return 0
}

// ConceptionProbability is the daily Bernoulli probability that one possible
// mother of the given age conceives. It is zero for node-level modes.
func (m *Model) ConceptionProbability(day, ageDays int, simYear float64) float64 {
	switch b := m.cfg.Birth.(type) {
	case IndividualPregnancies:
		return clampProbability(m.cfg.XBirth * PerCapitaRate(b.NodeRate) * m.cfg.Forcing.Multiplier(day))
	case IndividualPregnanciesByAgeAndYear:
		rate := b.Fertility.Fertility(float64(ageDays), simYear)
		return clampProbability(m.cfg.XBirth * rate * b.Fertility.ScaleFactor())
	}
	return 0
}

// MortalityHazard returns the daily probability of a non-disease death.
func (m *Model) MortalityHazard(ageDays int, sex models.Sex, simYear float64) float64 {
	if m.cfg.Mortality == nil {
		return 0
	}
	male, female := m.cfg.Mortality.tables()
	tbl := male
	if sex == models.Female {
		tbl = female
	}

	var rate float64
	switch m.cfg.Mortality.(type) {
	case MortalityByAgeAndSex:
		rate = tbl.AgeInterpolated(float64(ageDays), 0)
	case MortalityByYearAndAgeForEachSex:
		rate = tbl.Bilinear(float64(ageDays), simYear)
	}
	return clampProbability(rate * tbl.ScaleFactor() * m.cfg.XOtherMortality)
}

// MortalityTable returns the table used for sex, or nil when mortality is disabled.
func (m *Model) MortalityTable(sex models.Sex) *ratetable.Table {
	if m.cfg.Mortality == nil {
		return nil
	}
	male, female := m.cfg.Mortality.tables()
	if sex == models.Female {
		return female
	}
	return male
}

// FertilityTable returns the fertility table of the age-and-year mode, or nil.
func (m *Model) FertilityTable() *ratetable.Table {
	if b, ok := m.cfg.Birth.(IndividualPregnanciesByAgeAndYear); ok {
		return b.Fertility
	}
	return nil
}

// Describe returns a one-line summary for logs.
func (m *Model) Describe() string {
	var parts []string
	if m.cfg.Birth != nil {
		parts = append(parts, fmt.Sprintf("birth=%s x_Birth=%g", m.cfg.Birth.Name(), m.cfg.XBirth))
	} else {
		parts = append(parts, "birth=disabled")
	}
	if m.cfg.Mortality != nil {
		parts = append(parts, fmt.Sprintf("mortality=%s x_Other_Mortality=%g", m.cfg.Mortality.Name(), m.cfg.XOtherMortality))
	} else {
		parts = append(parts, "mortality=disabled")
	}
	parts = append(parts, fmt.Sprintf("forcing=%T", m.cfg.Forcing))
	return strings.Join(parts, " ")
}

func clampProbability(p float64) float64 {
	switch {
	case p <= 0 || math.IsNaN(p):
		return 0
	case p >= 1:
		return 1
	}
	return p
}
