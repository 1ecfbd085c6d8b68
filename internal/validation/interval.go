package validation

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nvandessel/vitaldyn/internal/constants"
)

// PoissonInterval returns the central interval [lower, upper] holding at
// least level of the probability mass of a Poisson distribution with the
// given mean. A non-positive mean yields [0, 0].
func PoissonInterval(mean, level float64) (lower, upper int) {
	if !(mean > 0) {
		return 0, 0
	}
	tail := (1 - level) / 2
	p := distuv.Poisson{Lambda: mean}
	return poissonQuantile(p, tail), poissonQuantile(p, 1-tail)
}

// poissonQuantile returns the smallest k with CDF(k) >= q. The search starts
// from the normal approximation and walks to the exact answer.
func poissonQuantile(p distuv.Poisson, q float64) int {
	z := distuv.UnitNormal.Quantile(q)
	k := int(math.Max(0, math.Round(p.Lambda+z*math.Sqrt(p.Lambda))))
	for k > 0 && p.CDF(float64(k-1)) >= q {
		k--
	}
	for p.CDF(float64(k)) < q {
		k++
	}
	return k
}

// AggregateTolerance is the absolute tolerance for a whole-run total with
// the given expectation: the wider of AggregateTolerance*expected and
// AggregateToleranceSigmas*sqrt(expected), never below ToleranceFloor.
func AggregateTolerance(expected float64) float64 {
	if !(expected > 0) {
		return constants.ToleranceFloor
	}
	tol := math.Max(constants.AggregateTolerance*expected, constants.AggregateToleranceSigmas*math.Sqrt(expected))
	return math.Max(tol, constants.ToleranceFloor)
}

// SubgroupTolerance is the absolute tolerance for a subgroup total. The
// relative band narrows as the expectation grows, from
// SubgroupToleranceMax down to AggregateTolerance.
func SubgroupTolerance(expected float64) float64 {
	if !(expected > 0) {
		return constants.ToleranceFloor
	}
	rel := constants.SubgroupToleranceSigmas / math.Sqrt(expected)
	rel = math.Min(math.Max(rel, constants.AggregateTolerance), constants.SubgroupToleranceMax)
	return math.Max(math.Ceil(rel*expected), constants.ToleranceFloor)
}
