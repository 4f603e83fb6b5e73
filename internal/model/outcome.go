package model

import "time"

// OutcomeStatus classifies how the reconciler handled a resource.
type OutcomeStatus string

const (
	// OutcomeUnchanged means the resource was already in its desired state.
	OutcomeUnchanged OutcomeStatus = "unchanged"
	// OutcomeConverged means converge ran and the re-probe confirmed it.
	OutcomeConverged OutcomeStatus = "converged"
	// OutcomeFailed means converge or its verification failed.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeSkipped means a dependency failed so the resource was not touched.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomePlanned means a dry run observed drift and would converge.
	OutcomePlanned OutcomeStatus = "planned"
)

// RunOutcome records the result of reconciling one resource.
type RunOutcome struct {
	ResourceID   string
	Group        string
	Desired      string
	InitialState State
	ActionTaken  bool
	FinalState   State
	Status       OutcomeStatus
	Message      string
	Diff         string
	Error        error
	Duration     time.Duration
	Timestamp    time.Time
}

// Failed reports whether the outcome should count against the run.
func (o RunOutcome) Failed() bool {
	return o.Status == OutcomeFailed || o.Status == OutcomeSkipped
}

// CountFailures returns how many outcomes failed or were skipped.
func CountFailures(outcomes []RunOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}
