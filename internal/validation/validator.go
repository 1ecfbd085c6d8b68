package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/ratemodel"
	"github.com/nvandessel/vitaldyn/internal/ratetable"
)

// Series names.
const (
	SeriesBirths       = "births"
	SeriesConceptions  = "conceptions"
	SeriesDeathsMale   = "deaths_male"
	SeriesDeathsFemale = "deaths_female"
)

// Options tunes the acceptance tests.
type Options struct {
	// ConfidenceLevel is the mass of the per-day Poisson interval.
	ConfidenceLevel float64
	// MaxDayFailureFraction is the largest tolerated fraction of days
	// outside their interval.
	MaxDayFailureFraction float64
}

// DefaultOptions returns the standard acceptance settings.
func DefaultOptions() Options {
	return Options{
		ConfidenceLevel:       constants.DefaultConfidenceLevel,
		MaxDayFailureFraction: constants.MaxDayFailureFraction,
	}
}

type series struct {
	name     string
	days     int
	out      int
	expected float64
	observed float64
}

type subgroupKey struct {
	series string
	sex    models.Sex
	age    int
	year   int
}

type tally struct {
	label    string
	expected float64
	observed float64
}

// Validator accumulates expectations while a run is in progress.
type Validator struct {
	model *ratemodel.Model
	opts  Options

	days      int
	series    map[string]*series
	order     []string
	daily     []Finding
	subgroups map[subgroupKey]*tally
}

// New returns a Validator for runs of model. Zero option fields take their
// defaults.
func New(model *ratemodel.Model, opts Options) *Validator {
	def := DefaultOptions()
	if opts.ConfidenceLevel <= 0 || opts.ConfidenceLevel >= 1 {
		opts.ConfidenceLevel = def.ConfidenceLevel
	}
	if opts.MaxDayFailureFraction <= 0 {
		opts.MaxDayFailureFraction = def.MaxDayFailureFraction
	}
	v := &Validator{
		model:     model,
		opts:      opts,
		series:    make(map[string]*series),
		subgroups: make(map[subgroupKey]*tally),
	}
	if model.BirthsEnabled() {
		v.addSeries(v.birthSeries())
	}
	if model.MortalityEnabled() {
		v.addSeries(SeriesDeathsMale)
		v.addSeries(SeriesDeathsFemale)
	}
	return v
}

func (v *Validator) addSeries(name string) {
	v.series[name] = &series{name: name}
	v.order = append(v.order, name)
}

// birthSeries names the event counted against BirthRate: conceptions when
// births go through pregnancies, births otherwise.
func (v *Validator) birthSeries() string {
	if v.model.UsesPregnancies() {
		return SeriesConceptions
	}
	return SeriesBirths
}

// Days returns the number of days observed.
func (v *Validator) Days() int { return v.days }

// ObserveDay implements driver.DayObserver.
func (v *Validator) ObserveDay(snap models.Snapshot, events []models.Event) {
	v.days++

	var births, conceptions int
	var deaths [2]int
	for _, e := range events {
		switch e.Type {
		case models.EventBirth:
			births++
		case models.EventConception:
			conceptions++
		case models.EventDeath:
			deaths[e.Sex]++
		}
	}

	if v.model.BirthsEnabled() {
		observed := births
		if v.model.UsesPregnancies() {
			observed = conceptions
		}
		v.observe(snap.Day, v.birthSeries(), v.model.BirthRate(snap), float64(observed))
		if fert := v.model.FertilityTable(); fert != nil {
			v.conceptionSubgroups(fert, snap, events)
		}
	}

	if v.model.MortalityEnabled() {
		var expected [2]float64
		for _, m := range snap.Members {
			h := v.model.MortalityHazard(m.AgeDays, m.Sex, snap.SimYear)
			expected[m.Sex] += h
			v.subgroup(v.deathKey(m.Sex, m.AgeDays, snap.SimYear)).expected += h
		}
		for _, e := range events {
			if e.Type == models.EventDeath {
				v.subgroup(v.deathKey(e.Sex, e.AgeDays, snap.SimYear)).observed++
			}
		}
		v.observe(snap.Day, SeriesDeathsMale, expected[models.Male], float64(deaths[models.Male]))
		v.observe(snap.Day, SeriesDeathsFemale, expected[models.Female], float64(deaths[models.Female]))
	}
}

func (v *Validator) observe(day int, name string, expected, observed float64) {
	s := v.series[name]
	s.days++
	s.expected += expected
	s.observed += observed

	lo, hi := PoissonInterval(expected, v.opts.ConfidenceLevel)
	if observed >= float64(lo) && observed <= float64(hi) {
		return
	}
	s.out++
	v.daily = append(v.daily, Finding{
		Check:    CheckDaily,
		Subgroup: name,
		Day:      day,
		Kind:     KindStatistical,
		Expected: expected,
		Observed: observed,
		Lower:    float64(lo),
		Upper:    float64(hi),
		Soft:     true,
	})
}

func (v *Validator) conceptionSubgroups(fert *ratetable.Table, snap models.Snapshot, events []models.Event) {
	year := fert.YearBucketIndex(snap.SimYear)
	for _, age := range snap.MotherAges {
		key := subgroupKey{series: SeriesConceptions, age: fert.AgeBucketIndex(float64(age)), year: year}
		v.subgroup(key).expected += v.model.ConceptionProbability(snap.Day, age, snap.SimYear)
	}
	for _, e := range events {
		if e.Type != models.EventConception {
			continue
		}
		key := subgroupKey{series: SeriesConceptions, age: fert.AgeBucketIndex(float64(e.AgeDays)), year: year}
		v.subgroup(key).observed++
	}
}

func (v *Validator) deathKey(sex models.Sex, ageDays int, simYear float64) subgroupKey {
	tbl := v.model.MortalityTable(sex)
	key := subgroupKey{series: SeriesDeathsMale, sex: sex, age: tbl.AgeBucketIndex(float64(ageDays))}
	if sex == models.Female {
		key.series = SeriesDeathsFemale
	}
	if _, ok := v.model.Mortality().(ratemodel.MortalityByYearAndAgeForEachSex); ok {
		key.year = tbl.YearBucketIndex(simYear)
	}
	return key
}

func (v *Validator) subgroup(key subgroupKey) *tally {
	t, ok := v.subgroups[key]
	if !ok {
		t = &tally{label: v.label(key)}
		v.subgroups[key] = t
	}
	return t
}

func (v *Validator) label(key subgroupKey) string {
	var tbl *ratetable.Table
	switch key.series {
	case SeriesConceptions:
		tbl = v.model.FertilityTable()
	default:
		tbl = v.model.MortalityTable(key.sex)
	}
	l := key.series + " " + bucketLabel("age", tbl.AgeBreakpoints(), key.age, constants.DaysPerYear, "y")
	if key.series == SeriesConceptions {
		return l + " " + bucketLabel("year", tbl.YearBreakpoints(), key.year, 1, "")
	}
	if _, ok := v.model.Mortality().(ratemodel.MortalityByYearAndAgeForEachSex); ok {
		l += " " + bucketLabel("year", tbl.YearBreakpoints(), key.year, 1, "")
	}
	return l
}

// bucketLabel describes bucket i under the right-closed bucket rule.
func bucketLabel(axis string, bps []float64, i int, div float64, unit string) string {
	n := len(bps)
	switch {
	case n == 1:
		return axis + " all"
	case i == 0:
		return fmt.Sprintf("%s<=%.4g%s", axis, bps[0]/div, unit)
	case i == n-1:
		return fmt.Sprintf("%s>%.4g%s", axis, bps[n-2]/div, unit)
	}
	return fmt.Sprintf("%s(%.4g,%.4g]%s", axis, bps[i-1]/div, bps[i]/div, unit)
}

// Finish applies the whole-run checks to log, the complete event log of the
// observed run.
func (v *Validator) Finish(log *models.EventLog) *Report {
	r := &Report{}

	for _, name := range v.order {
		s := v.series[name]
		frac := 0.0
		if s.days > 0 {
			frac = float64(s.out) / float64(s.days)
		}
		r.Series = append(r.Series, DaySeries{
			Name:            name,
			Days:            s.days,
			OutOfInterval:   s.out,
			FailureFraction: frac,
			Expected:        s.expected,
			Observed:        s.observed,
		})
		r.Findings = append(r.Findings, Finding{
			Check:    CheckSeries,
			Subgroup: name,
			Day:      WholeRun,
			Kind:     KindStatistical,
			Expected: v.opts.MaxDayFailureFraction,
			Observed: frac,
			Lower:    0,
			Upper:    v.opts.MaxDayFailureFraction,
			Passed:   frac <= v.opts.MaxDayFailureFraction,
			Detail:   fmt.Sprintf("%d of %d days outside %.4g%% interval", s.out, s.days, 100*v.opts.ConfidenceLevel),
		})
		r.Findings = append(r.Findings, toleranceFinding(CheckTotal, name, s.expected, s.observed, AggregateTolerance(s.expected)))
	}

	keys := make([]subgroupKey, 0, len(v.subgroups))
	for k := range v.subgroups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.series != b.series {
			return a.series < b.series
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.age < b.age
	})
	for _, k := range keys {
		t := v.subgroups[k]
		r.Findings = append(r.Findings, toleranceFinding(CheckSubgroup, t.label, t.expected, t.observed, SubgroupTolerance(t.expected)))
	}

	if f, ok := SexRatio(log); ok {
		r.Findings = append(r.Findings, f)
	}
	r.Findings = append(r.Findings, CheckInvariants(v.model, log, v.days)...)
	r.Findings = append(r.Findings, v.daily...)
	return r
}

func toleranceFinding(check, subgroup string, expected, observed, tol float64) Finding {
	return Finding{
		Check:    check,
		Subgroup: subgroup,
		Day:      WholeRun,
		Kind:     KindStatistical,
		Expected: expected,
		Observed: observed,
		Lower:    math.Max(0, expected-tol),
		Upper:    expected + tol,
		Passed:   math.Abs(observed-expected) <= tol,
	}
}

// SexRatio checks |boys/girls - 1| against SexRatioTolerance. It reports
// false when the log holds fewer than MinBirthsForSexRatio births.
func SexRatio(log *models.EventLog) (Finding, bool) {
	girls := log.CountWhere(models.EventBirth, func(e models.Event) bool { return e.Sex == models.Female })
	boys := log.Count(models.EventBirth) - girls
	if boys+girls < constants.MinBirthsForSexRatio {
		return Finding{}, false
	}
	f := Finding{
		Check:    CheckSexRatio,
		Day:      WholeRun,
		Kind:     KindStatistical,
		Expected: 1,
		Lower:    1 - constants.SexRatioTolerance,
		Upper:    1 + constants.SexRatioTolerance,
		Detail:   fmt.Sprintf("%d boys, %d girls", boys, girls),
	}
	if girls == 0 {
		f.Observed = float64(boys)
		f.Detail += ", ratio undefined"
		return f, true
	}
	f.Observed = float64(boys) / float64(girls)
	f.Passed = math.Abs(f.Observed-1) <= constants.SexRatioTolerance
	return f, true
}
