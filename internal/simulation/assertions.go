package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/models"
)

// AssertPassed asserts that the validation report has no hard failures.
func AssertPassed(t *testing.T, result SimulationResult) {
	t.Helper()
	if !result.Report.Passed() {
		t.Errorf("AssertPassed: seed %d failed validation:\n%s", result.Result.Seed, result.Report.Summary())
	}
}

// AssertTotalWithin asserts that the number of events of type typ is
// within relTol of expected.
func AssertTotalWithin(t *testing.T, result SimulationResult, typ models.EventType, expected, relTol float64) {
	t.Helper()
	got := float64(result.Result.Log.Count(typ))
	if math.Abs(got-expected) > relTol*expected {
		t.Errorf("AssertTotalWithin: %d %s events, want %.1f ± %.1f%%", int(got), typ, expected, 100*relTol)
	}
}

// AssertNoEvents asserts that no events of the given types were logged.
// With no types, the whole log must be empty.
func AssertNoEvents(t *testing.T, result SimulationResult, types ...models.EventType) {
	t.Helper()
	log := result.Result.Log
	if len(types) == 0 {
		if n := log.Len(); n != 0 {
			t.Errorf("AssertNoEvents: %d events logged, want none", n)
		}
		return
	}
	for _, typ := range types {
		if n := log.Count(typ); n != 0 {
			t.Errorf("AssertNoEvents: %d %s events logged, want none", n, typ)
		}
	}
}

// AssertSexRatio asserts that |boys/girls - 1| <= tol among births. Runs with
// fewer than the minimum number of births fail, since the ratio is then
// too noisy to say anything.
func AssertSexRatio(t *testing.T, result SimulationResult, tol float64) {
	t.Helper()
	log := result.Result.Log
	boys := log.CountWhere(models.EventBirth, func(e models.Event) bool { return e.Sex == models.Male })
	girls := log.CountWhere(models.EventBirth, func(e models.Event) bool { return e.Sex == models.Female })
	if boys+girls < constants.MinBirthsForSexRatio {
		t.Errorf("AssertSexRatio: only %d births, need %d", boys+girls, constants.MinBirthsForSexRatio)
		return
	}
	if girls == 0 {
		t.Errorf("AssertSexRatio: %d boys and no girls", boys)
		return
	}
	if r := float64(boys) / float64(girls); math.Abs(r-1) > tol {
		t.Errorf("AssertSexRatio: boys/girls = %d/%d = %.3f, want within %.0f%% of 1", boys, girls, r, 100*tol)
	}
}

// AssertGestation asserts that every birth with a mother follows a
// conception by that mother exactly GestationDays earlier, with no other
// conception in between.
func AssertGestation(t *testing.T, result SimulationResult) {
	t.Helper()
	conceived := make(map[models.ID]int)
	for _, e := range result.Result.Log.Events() {
		switch e.Type {
		case models.EventConception:
			if day, open := conceived[e.IndividualID]; open {
				t.Errorf("AssertGestation: mother %d conceived on day %d while pregnant since day %d", e.IndividualID, e.Day, day)
			}
			conceived[e.IndividualID] = e.Day
		case models.EventBirth:
			if e.MotherID == 0 {
				continue
			}
			day, open := conceived[e.MotherID]
			if !open {
				t.Errorf("AssertGestation: birth of %d on day %d has no conception by mother %d", e.IndividualID, e.Day, e.MotherID)
				continue
			}
			if e.Day-day != constants.GestationDays {
				t.Errorf("AssertGestation: mother %d conceived day %d, delivered day %d (%d days)", e.MotherID, day, e.Day, e.Day-day)
			}
			delete(conceived, e.MotherID)
		case models.EventDeath:
			delete(conceived, e.IndividualID)
		}
	}
	for mother, day := range conceived {
		if result.Result.Days-day > constants.GestationDays {
			t.Errorf("AssertGestation: mother %d conceived day %d never delivered", mother, day)
		}
	}
}

// AssertDayFailureFraction asserts that the named day series has at most
// maxFraction of its days outside the acceptance interval.
func AssertDayFailureFraction(t *testing.T, result SimulationResult, series string, maxFraction float64) {
	t.Helper()
	s, ok := result.Report.SeriesByName(series)
	if !ok {
		t.Errorf("AssertDayFailureFraction: no series %q", series)
		return
	}
	if s.FailureFraction > maxFraction {
		t.Errorf("AssertDayFailureFraction: %s has %d/%d days outside interval (%.2f%% > %.2f%%)",
			series, s.OutOfInterval, s.Days, 100*s.FailureFraction, 100*maxFraction)
	}
}

// AssertUniqueDeaths asserts that no individual dies twice and that no
// individual has events after its death.
func AssertUniqueDeaths(t *testing.T, result SimulationResult) {
	t.Helper()
	died := make(map[models.ID]int)
	for _, e := range result.Result.Log.Events() {
		if day, dead := died[e.IndividualID]; dead {
			t.Errorf("AssertUniqueDeaths: %s after death on day %d", e, day)
			continue
		}
		if e.Type == models.EventBirth && e.MotherID != 0 {
			if day, dead := died[e.MotherID]; dead {
				t.Errorf("AssertUniqueDeaths: %s by mother dead since day %d", e, day)
			}
		}
		if e.Type == models.EventDeath {
			died[e.IndividualID] = e.Day
		}
	}
}
