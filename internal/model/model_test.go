package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestState_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"absent is valid", StateAbsent, true},
		{"present is valid", StatePresent, true},
		{"mismatched is valid", StateMismatched, true},
		{"unknown is valid", StateUnknown, true},
		{"invalid state", State("drifted"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.state.IsValid())
		})
	}
}

func TestState_NeedsCreateTreatsUnknownAsAbsent(t *testing.T) {
	t.Parallel()

	require.True(t, StateAbsent.NeedsCreate())
	require.True(t, StateUnknown.NeedsCreate())
	require.False(t, StateMismatched.NeedsCreate())
	require.False(t, StatePresent.NeedsCreate())
	require.True(t, StatePresent.Satisfied())
	require.False(t, StateMismatched.Satisfied())
}

func TestCountFailures(t *testing.T) {
	t.Parallel()

	outcomes := []RunOutcome{
		{ResourceID: "swap", Status: OutcomeConverged},
		{ResourceID: "ssh", Status: OutcomeUnchanged},
		{ResourceID: "firewall", Status: OutcomeFailed, Error: errors.New("ufw missing")},
		{ResourceID: "app", Status: OutcomeSkipped},
		{ResourceID: "image", Status: OutcomePlanned},
	}

	require.Equal(t, 2, CountFailures(outcomes))
	require.True(t, outcomes[2].Failed())
	require.False(t, outcomes[4].Failed())
}

func TestReportCountsAndImmutability(t *testing.T) {
	t.Parallel()

	input := []CheckResult{
		{Name: "ufw active", Passed: true},
		{Name: "docker installed", Passed: false, Detail: "not installed"},
		{Name: "swap on", Passed: true},
	}

	report := NewReport(input, time.Second)
	require.Equal(t, 3, report.Len())
	require.Equal(t, 2, report.PassCount())
	require.Equal(t, 1, report.FailCount())
	require.False(t, report.AllPassed())
	require.Equal(t, time.Second, report.Duration())

	input[0].Passed = false
	results := report.Results()
	require.True(t, results[0].Passed, "report must not alias caller slice")

	results[1].Passed = true
	require.False(t, report.Results()[1].Passed, "returned slice must be a copy")
}

func TestEmptyReportPasses(t *testing.T) {
	t.Parallel()

	report := NewReport(nil, 0)
	require.Equal(t, 0, report.Len())
	require.True(t, report.AllPassed())
}
