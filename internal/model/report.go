package model

import "time"

// CheckResult is the outcome of one verification check.
type CheckResult struct {
	Name   string
	Group  string
	Passed bool
	Detail string
	Error  error
}

// Report is the ordered result of a verification run. It is built once by
// NewReport and not modified afterwards.
type Report struct {
	results   []CheckResult
	passCount int
	failCount int
	duration  time.Duration
}

// NewReport freezes the given results into a Report.
func NewReport(results []CheckResult, duration time.Duration) Report {
	copied := append([]CheckResult(nil), results...)
	r := Report{results: copied, duration: duration}
	for _, res := range copied {
		if res.Passed {
			r.passCount++
		} else {
			r.failCount++
		}
	}
	return r
}

// Results returns a copy of the ordered check results.
func (r Report) Results() []CheckResult {
	return append([]CheckResult(nil), r.results...)
}

// Len returns the number of results.
func (r Report) Len() int { return len(r.results) }

// PassCount returns the number of passing checks.
func (r Report) PassCount() int { return r.passCount }

// FailCount returns the number of failing checks.
func (r Report) FailCount() int { return r.failCount }

// Duration returns how long the verification run took.
func (r Report) Duration() time.Duration { return r.duration }

// AllPassed reports whether every check passed.
func (r Report) AllPassed() bool { return r.failCount == 0 }
