package validation

import (
	"fmt"
	"strings"
)

// Kind separates statistical comparisons from invariant checks.
type Kind string

const (
	KindStatistical Kind = "statistical"
	KindInvariant   Kind = "invariant"
)

// Check names.
const (
	CheckDaily           = "daily"
	CheckSeries          = "series"
	CheckTotal           = "total"
	CheckSubgroup        = "subgroup"
	CheckSexRatio        = "sex_ratio"
	CheckGestation       = "gestation"
	CheckUniqueDeath     = "unique_death"
	CheckEventAfterDeath = "event_after_death"
	CheckDisabledProcess = "disabled_process"
)

// WholeRun is the Day of findings that are not tied to one day.
const WholeRun = -1

// Finding is the outcome of one check. Statistical findings carry the
// expectation and the accepted interval [Lower, Upper]; invariant findings
// carry the number of violations in Observed.
type Finding struct {
	Check    string  `json:"check"`
	Subgroup string  `json:"subgroup,omitempty"`
	Day      int     `json:"day"`
	Kind     Kind    `json:"kind"`
	Expected float64 `json:"expected"`
	Observed float64 `json:"observed"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	// Soft findings are reported but never fail a run on their own.
	Soft   bool   `json:"soft,omitempty"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func (f Finding) String() string {
	status := "ok"
	if !f.Passed {
		status = "FAIL"
		if f.Soft {
			status = "soft-fail"
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", status, f.Check)
	if f.Subgroup != "" {
		fmt.Fprintf(&b, " %s", f.Subgroup)
	}
	if f.Day != WholeRun {
		fmt.Fprintf(&b, " day %d", f.Day)
	}
	if f.Kind == KindStatistical {
		fmt.Fprintf(&b, ": observed %.6g, expected %.6g, accepted [%.6g, %.6g]", f.Observed, f.Expected, f.Lower, f.Upper)
	} else {
		fmt.Fprintf(&b, ": %d violation(s)", int(f.Observed))
	}
	if f.Detail != "" {
		fmt.Fprintf(&b, " (%s)", f.Detail)
	}
	return b.String()
}

// DaySeries summarizes one per-day series.
type DaySeries struct {
	Name            string  `json:"name"`
	Days            int     `json:"days"`
	OutOfInterval   int     `json:"out_of_interval"`
	FailureFraction float64 `json:"failure_fraction"`
	Expected        float64 `json:"expected"`
	Observed        float64 `json:"observed"`
}

// Report is the result of validating one run.
type Report struct {
	Findings []Finding   `json:"findings"`
	Series   []DaySeries `json:"series"`
}

// Passed reports whether every hard finding passed.
func (r *Report) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the failed findings that fail the run.
func (r *Report) Failures() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if !f.Passed && !f.Soft {
			out = append(out, f)
		}
	}
	return out
}

// SoftFailures returns the failed findings that are informational only.
func (r *Report) SoftFailures() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if !f.Passed && f.Soft {
			out = append(out, f)
		}
	}
	return out
}

// Find returns the whole-run findings for check, in report order.
func (r *Report) Find(check string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Check == check && f.Day == WholeRun {
			out = append(out, f)
		}
	}
	return out
}

// Lookup returns the whole-run finding for check and subgroup.
func (r *Report) Lookup(check, subgroup string) (Finding, bool) {
	for _, f := range r.Findings {
		if f.Check == check && f.Subgroup == subgroup && f.Day == WholeRun {
			return f, true
		}
	}
	return Finding{}, false
}

// SeriesByName returns the named day series.
func (r *Report) SeriesByName(name string) (DaySeries, bool) {
	for _, s := range r.Series {
		if s.Name == name {
			return s, true
		}
	}
	return DaySeries{}, false
}

// Summary renders a plain-text list of the whole-run findings followed by
// the failures.
func (r *Report) Summary() string {
	var b strings.Builder
	failures := r.Failures()
	verdict := "PASSED"
	if len(failures) > 0 {
		verdict = "FAILED"
	}
	checks := 0
	for _, f := range r.Findings {
		if f.Day == WholeRun {
			checks++
		}
	}
	fmt.Fprintf(&b, "%s: %d checks, %d failures, %d soft failures\n", verdict, checks, len(failures), len(r.SoftFailures()))
	for _, s := range r.Series {
		fmt.Fprintf(&b, "  series %s: %d/%d days outside interval (%.2f%%), observed %.0f, expected %.1f\n",
			s.Name, s.OutOfInterval, s.Days, 100*s.FailureFraction, s.Observed, s.Expected)
	}
	for _, f := range r.Findings {
		if f.Day == WholeRun {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	return b.String()
}
