// Package report renders the outcome of a run for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
)

// MaxExitCode caps the failure count so the codes above it stay free for
// fatal errors.
const MaxExitCode = 100

// Run is everything a report needs about one invocation.
type Run struct {
	Host     string
	Modes    []string
	DryRun   bool
	Outcomes []model.RunOutcome
	Checks   model.Report
	Duration time.Duration
}

// Failures counts failed or skipped outcomes plus failed checks.
func (r Run) Failures() int {
	return model.CountFailures(r.Outcomes) + r.Checks.FailCount()
}

// ExitCode maps the failure count to a process exit status.
func (r Run) ExitCode() int {
	return min(r.Failures(), MaxExitCode)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

const maxMessageWidth = 60

// WriteText renders resource and check tables followed by a summary line.
func WriteText(w io.Writer, r Run) error {
	var b strings.Builder

	if len(r.Outcomes) > 0 {
		b.WriteString(headerStyle.Render("Resources"))
		b.WriteString("\n")
		rows := make([][]string, 0, len(r.Outcomes))
		for _, o := range r.Outcomes {
			rows = append(rows, []string{
				o.ResourceID,
				o.Group,
				statusLabel(o.Status),
				transition(o),
				o.Duration.Truncate(time.Millisecond).String(),
				truncate(firstLine(o.Message), maxMessageWidth),
			})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("RESOURCE", "GROUP", "STATUS", "STATE", "TIME", "MESSAGE").
			Rows(rows...)
		b.WriteString(t.Render())
		b.WriteString("\n")

		for _, o := range r.Outcomes {
			if strings.TrimSpace(o.Diff) == "" {
				continue
			}
			fmt.Fprintf(&b, "\n%s\n%s\n", headerStyle.Render("--- "+o.ResourceID+" ---"), strings.TrimRight(o.Diff, "\n"))
		}
	}

	if r.Checks.Len() > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(headerStyle.Render("Checks"))
		b.WriteString("\n")
		rows := make([][]string, 0, r.Checks.Len())
		for _, c := range r.Checks.Results() {
			result := okStyle.Render("pass")
			if !c.Passed {
				result = badStyle.Render("fail")
			}
			rows = append(rows, []string{c.Name, c.Group, result, truncate(firstLine(c.Detail), maxMessageWidth)})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("CHECK", "GROUP", "RESULT", "DETAIL").
			Rows(rows...)
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(summaryLine(r))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func summaryLine(r Run) string {
	counts := make(map[model.OutcomeStatus]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	line := fmt.Sprintf("%d converged, %d unchanged, %d failed, %d skipped",
		counts[model.OutcomeConverged], counts[model.OutcomeUnchanged], counts[model.OutcomeFailed], counts[model.OutcomeSkipped])
	if r.DryRun {
		line = fmt.Sprintf("%d to change, %d unchanged, %d failed", counts[model.OutcomePlanned], counts[model.OutcomeUnchanged], counts[model.OutcomeFailed])
	}
	line += fmt.Sprintf("; checks %d/%d passed in %s", r.Checks.PassCount(), r.Checks.Len(), r.Duration.Truncate(time.Millisecond))

	if r.Failures() == 0 {
		return okStyle.Render(line)
	}
	return badStyle.Render(line)
}

func statusLabel(s model.OutcomeStatus) string {
	switch s {
	case model.OutcomeConverged:
		return okStyle.Render(string(s))
	case model.OutcomeFailed:
		return badStyle.Render(string(s))
	case model.OutcomePlanned:
		return warnStyle.Render(string(s))
	default:
		return dimStyle.Render(string(s))
	}
}

func transition(o model.RunOutcome) string {
	if o.FinalState == "" || o.FinalState == o.InitialState {
		return string(o.InitialState)
	}
	return fmt.Sprintf("%s → %s", o.InitialState, o.FinalState)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

type jsonOutcome struct {
	ID       string  `json:"id"`
	Group    string  `json:"group"`
	Desired  string  `json:"desired,omitempty"`
	Status   string  `json:"status"`
	Initial  string  `json:"initial_state"`
	Final    string  `json:"final_state,omitempty"`
	Action   bool    `json:"action_taken"`
	Message  string  `json:"message,omitempty"`
	Diff     string  `json:"diff,omitempty"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration_seconds"`
	Time     string  `json:"timestamp,omitempty"`
}

type jsonCheck struct {
	Name   string `json:"name"`
	Group  string `json:"group"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

type jsonSummary struct {
	Resources    int     `json:"resources"`
	Failures     int     `json:"failures"`
	ChecksPassed int     `json:"checks_passed"`
	ChecksFailed int     `json:"checks_failed"`
	ExitCode     int     `json:"exit_code"`
	Duration     float64 `json:"duration_seconds"`
}

type jsonRun struct {
	Host      string        `json:"host"`
	Modes     []string      `json:"modes"`
	DryRun    bool          `json:"dry_run"`
	Summary   jsonSummary   `json:"summary"`
	Resources []jsonOutcome `json:"resources"`
	Checks    []jsonCheck   `json:"checks"`
}

// WriteJSON encodes the run as an indented JSON document.
func WriteJSON(w io.Writer, r Run) error {
	out := jsonRun{
		Host:   r.Host,
		Modes:  r.Modes,
		DryRun: r.DryRun,
		Summary: jsonSummary{
			Resources:    len(r.Outcomes),
			Failures:     model.CountFailures(r.Outcomes),
			ChecksPassed: r.Checks.PassCount(),
			ChecksFailed: r.Checks.FailCount(),
			ExitCode:     r.ExitCode(),
			Duration:     r.Duration.Seconds(),
		},
		Resources: make([]jsonOutcome, 0, len(r.Outcomes)),
		Checks:    make([]jsonCheck, 0, r.Checks.Len()),
	}

	for _, o := range r.Outcomes {
		jo := jsonOutcome{
			ID:       o.ResourceID,
			Group:    o.Group,
			Desired:  o.Desired,
			Status:   string(o.Status),
			Initial:  string(o.InitialState),
			Final:    string(o.FinalState),
			Action:   o.ActionTaken,
			Message:  o.Message,
			Diff:     o.Diff,
			Duration: o.Duration.Seconds(),
		}
		if !o.Timestamp.IsZero() {
			jo.Time = o.Timestamp.UTC().Format(time.RFC3339)
		}
		if o.Error != nil {
			jo.Error = o.Error.Error()
		}
		out.Resources = append(out.Resources, jo)
	}

	for _, c := range r.Checks.Results() {
		jc := jsonCheck{Name: c.Name, Group: c.Group, Passed: c.Passed, Detail: c.Detail}
		if c.Error != nil {
			jc.Error = c.Error.Error()
		}
		out.Checks = append(out.Checks, jc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
