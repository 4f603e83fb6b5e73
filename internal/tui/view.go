package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := m.title
	if strings.TrimSpace(title) == "" {
		title = "run"
	}
	if m.dryRun {
		title += " (dry run)"
	}
	sections = append(sections, titleStyle.Render("vpsctl • "+title))

	sections = append(sections, sectionStyle.Render("Progress"), m.progressView())

	if len(m.order) > 0 {
		sections = append(sections, sectionStyle.Render("Resources"), m.resourcesView())
	}

	if len(m.checks) > 0 {
		sections = append(sections, sectionStyle.Render("Checks"), m.checksView())
	}

	if summary := m.summary(); summary != "" {
		sections = append(sections, summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) progressView() string {
	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1.0, float64(m.completed)/float64(m.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", m.completed, m.total))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", m.bar.ViewAs(ratio))
}

func (m Model) resourcesView() string {
	lines := make([]string, 0, len(m.order))
	for _, id := range m.order {
		o := m.outcomes[id]
		line := fmt.Sprintf(" %s %s", StatusIcon(o.Status), id)
		if msg := strings.TrimSpace(o.Message); msg != "" && done(o.Status) {
			line = fmt.Sprintf("%s: %s", line, firstLine(msg))
		}
		if o.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, o.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) checksView() string {
	lines := make([]string, 0, len(m.checks))
	for _, c := range m.checks {
		icon := successStyle.Render("✓")
		line := c.Name
		if !c.Passed {
			icon = failureStyle.Render("✗")
			if c.Detail != "" {
				line = fmt.Sprintf("%s: %s", line, firstLine(c.Detail))
			}
		}
		lines = append(lines, fmt.Sprintf(" %s %s", icon, line))
	}
	return strings.Join(lines, "\n")
}

func (m Model) summary() string {
	switch {
	case m.cancelled:
		return failureStyle.Render("Run cancelled")
	case !m.finished:
		return ""
	}

	failed := 0
	for _, id := range m.order {
		if m.outcomes[id].Failed() {
			failed++
		}
	}
	checksFailed := 0
	for _, c := range m.checks {
		if !c.Passed {
			checksFailed++
		}
	}
	if failed == 0 && checksFailed == 0 {
		return successStyle.Render(fmt.Sprintf("%d resources, %d checks: all good", m.total, len(m.checks)))
	}
	return failureStyle.Render(fmt.Sprintf("%d resources failed, %d checks failed", failed, checksFailed))
}

// StatusIcon returns the glyph representing an outcome status.
func StatusIcon(status model.OutcomeStatus) string {
	switch status {
	case model.OutcomeConverged:
		return successStyle.Render("✓")
	case model.OutcomeUnchanged:
		return skippedStyle.Render("=")
	case statusRunning:
		return runningStyle.Render("⏳")
	case model.OutcomeFailed:
		return failureStyle.Render("✗")
	case model.OutcomeSkipped:
		return skippedStyle.Render("⊘")
	case model.OutcomePlanned:
		return plannedStyle.Render("↻")
	default:
		return pendingStyle.Render("…")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
