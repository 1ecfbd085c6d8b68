package ratemodel

import (
	"fmt"
	"strings"

	"github.com/nvandessel/vitaldyn/internal/ratetable"
)

// Birth-rate dependence names as they appear in configuration.
const (
	FixedBirthRateName                    = "FIXED_BIRTH_RATE"
	PopulationDependentName               = "POPULATION_DEP_RATE"
	DemographicDependentName              = "DEMOGRAPHIC_DEP_RATE"
	IndividualPregnanciesName             = "INDIVIDUAL_PREGNANCIES"
	IndividualPregnanciesByAgeAndYearName = "INDIVIDUAL_PREGNANCIES_BY_AGE_AND_YEAR"
)

// Death-rate dependence names as they appear in configuration.
const (
	MortalityByAgeAndSexName            = "NONDISEASE_MORTALITY_BY_AGE_AND_GENDER"
	MortalityByYearAndAgeForEachSexName = "NONDISEASE_MORTALITY_BY_YEAR_AND_AGE_FOR_EACH_GENDER"
)

// BirthMode is the birth-rate dependence. The set of implementations is
// closed; Model.BirthRate switches over it.
type BirthMode interface {
	Name() string
	birthMode()
}

// FixedBirthRate produces NodeRate births per day regardless of population.
type FixedBirthRate struct{ NodeRate float64 }

// PopulationDependent scales a per-capita rate by the total population.
type PopulationDependent struct{ NodeRate float64 }

// DemographicDependent scales a per-capita rate by the number of possible
// mothers; births happen at node level with no gestation.
type DemographicDependent struct{ NodeRate float64 }

// IndividualPregnancies gives every possible mother the same daily
// conception probability; births follow after gestation.
type IndividualPregnancies struct{ NodeRate float64 }

// IndividualPregnanciesByAgeAndYear looks up each possible mother's daily
// conception probability in a fertility table.
type IndividualPregnanciesByAgeAndYear struct{ Fertility *ratetable.Table }

func (FixedBirthRate) Name() string                    { return FixedBirthRateName }
func (PopulationDependent) Name() string               { return PopulationDependentName }
func (DemographicDependent) Name() string              { return DemographicDependentName }
func (IndividualPregnancies) Name() string             { return IndividualPregnanciesName }
func (IndividualPregnanciesByAgeAndYear) Name() string { return IndividualPregnanciesByAgeAndYearName }

func (FixedBirthRate) birthMode()                    {}
func (PopulationDependent) birthMode()               {}
func (DemographicDependent) birthMode()              {}
func (IndividualPregnancies) birthMode()             {}
func (IndividualPregnanciesByAgeAndYear) birthMode() {}

// ParseBirthMode builds a BirthMode from its configuration name. nodeRate is
// used by the aggregate modes; fertility is required by the age-and-year mode.
func ParseBirthMode(name string, nodeRate float64, fertility *ratetable.Table) (BirthMode, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case FixedBirthRateName:
		return FixedBirthRate{NodeRate: nodeRate}, nil
	case PopulationDependentName:
		return PopulationDependent{NodeRate: nodeRate}, nil
	case DemographicDependentName:
		return DemographicDependent{NodeRate: nodeRate}, nil
	case IndividualPregnanciesName:
		return IndividualPregnancies{NodeRate: nodeRate}, nil
	case IndividualPregnanciesByAgeAndYearName:
		if fertility == nil {
			return nil, fmt.Errorf("%w: %s requires a fertility table", ErrConfig, IndividualPregnanciesByAgeAndYearName)
		}
		return IndividualPregnanciesByAgeAndYear{Fertility: fertility}, nil
	}
	return nil, fmt.Errorf("%w: unknown birth rate dependence %q", ErrConfig, name)
}

// MortalityMode is the death-rate dependence. Both variants carry one table per sex.
type MortalityMode interface {
	Name() string
	tables() (male, female *ratetable.Table)
	mortalityMode()
}

// MortalityByAgeAndSex interpolates along age in the first year column only.
type MortalityByAgeAndSex struct{ Male, Female *ratetable.Table }

// MortalityByYearAndAgeForEachSex interpolates along both age and year.
type MortalityByYearAndAgeForEachSex struct{ Male, Female *ratetable.Table }

func (MortalityByAgeAndSex) Name() string            { return MortalityByAgeAndSexName }
func (MortalityByYearAndAgeForEachSex) Name() string { return MortalityByYearAndAgeForEachSexName }

func (m MortalityByAgeAndSex) tables() (*ratetable.Table, *ratetable.Table) { return m.Male, m.Female }
func (m MortalityByYearAndAgeForEachSex) tables() (*ratetable.Table, *ratetable.Table) {
	return m.Male, m.Female
}

func (MortalityByAgeAndSex) mortalityMode()            {}
func (MortalityByYearAndAgeForEachSex) mortalityMode() {}

// ParseMortalityMode builds a MortalityMode from its configuration name.
func ParseMortalityMode(name string, male, female *ratetable.Table) (MortalityMode, error) {
	var m MortalityMode
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case MortalityByAgeAndSexName:
		m = MortalityByAgeAndSex{Male: male, Female: female}
	case MortalityByYearAndAgeForEachSexName:
		m = MortalityByYearAndAgeForEachSex{Male: male, Female: female}
	default:
		return nil, fmt.Errorf("%w: unknown death rate dependence %q", ErrConfig, name)
	}
	if male == nil || female == nil {
		return nil, fmt.Errorf("%w: %s requires male and female mortality tables", ErrConfig, m.Name())
	}
	return m, nil
}
