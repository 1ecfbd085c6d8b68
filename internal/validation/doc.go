// Package validation compares a run's recorded events with the expectations
// of its rate model.
//
// A Validator observes every simulated day while the run is in progress,
// because the population snapshot it needs exists only for that day. It
// keeps per-day Poisson acceptance results and accumulates expected and
// observed totals per series and per subgroup. Finish then applies the
// whole-run tolerance checks and the event-log invariants (gestation length,
// unique deaths, nothing after death, disabled processes) and returns a
// Report.
//
// Statistical findings for single days are soft: a day outside its interval
// is recorded but fails the run only through the series failure fraction.
// Series, total, subgroup, sex-ratio and invariant findings are hard.
package validation
