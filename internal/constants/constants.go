// Package constants provides named constants used throughout the vitaldyn codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Calendar constants
const (
	// DaysPerYear is the length of a simulation year. Seasonal forcing and
	// simulation-year arithmetic both use it.
	DaysPerYear = 365

	// GestationDays is the fixed interval between conception and birth.
	GestationDays = 280
)

// Birth-rate unit conventions
const (
	// BirthRateSanityThreshold is the node birth rate above which the
	// configured value is reinterpreted under the annual-percentage convention.
	BirthRateSanityThreshold = 0.005

	// TwoPercentPerYear is the daily per-capita rate equivalent to 2% per year.
	TwoPercentPerYear = 0.02 / DaysPerYear
)

// Population defaults
const (
	// DefaultMCW is the sampling weight given to individuals when none is configured.
	DefaultMCW = 1.0

	// DefaultFemaleFraction is the probability that a created individual is female.
	DefaultFemaleFraction = 0.5

	// DefaultFertileMinYears is the youngest age (inclusive) at which a female
	// counts as a possible mother.
	DefaultFertileMinYears = 15

	// DefaultFertileMaxYears is the oldest age (exclusive) at which a female
	// counts as a possible mother.
	DefaultFertileMaxYears = 45

	// DefaultAgeAxisScale converts table age breakpoints given in years to days.
	DefaultAgeAxisScale = DaysPerYear
)

// Statistical validation constants
const (
	// DefaultConfidenceLevel is the probability mass covered by the per-day
	// Poisson acceptance interval.
	DefaultConfidenceLevel = 0.9999

	// MaxDayFailureFraction is the largest fraction of days allowed to fall
	// outside their acceptance interval before a series fails.
	MaxDayFailureFraction = 0.05

	// AggregateTolerance is the relative tolerance applied to large whole-run
	// totals.
	AggregateTolerance = 0.05

	// AggregateToleranceSigmas widens the whole-run band for small totals to
	// this many Poisson standard deviations. The band is 5% once the expected
	// count reaches (AggregateToleranceSigmas/AggregateTolerance)^2 = 6400.
	AggregateToleranceSigmas = 4.0

	// SubgroupToleranceMax is the widest relative tolerance given to a
	// small subgroup total.
	SubgroupToleranceMax = 0.20

	// SubgroupToleranceSigmas scales the inverse-square-root subgroup tolerance.
	// A subgroup with expected count E gets SubgroupToleranceSigmas/sqrt(E),
	// clamped to [AggregateTolerance, SubgroupToleranceMax].
	SubgroupToleranceSigmas = 4.0

	// ToleranceFloor is the smallest absolute tolerance applied to any total.
	ToleranceFloor = 5

	// SexRatioTolerance bounds |boys/girls - 1|.
	SexRatioTolerance = 0.15

	// MinBirthsForSexRatio is the number of births below which the sex ratio
	// check is skipped.
	MinBirthsForSexRatio = 100
)
