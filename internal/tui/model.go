package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
)

// ResourceStartedMsg indicates the reconciler picked up a resource.
type ResourceStartedMsg struct {
	ID string
}

// ResourceFinishedMsg reports the outcome of one resource.
type ResourceFinishedMsg struct {
	Outcome model.RunOutcome
}

// CheckFinishedMsg carries one verification result.
type CheckFinishedMsg struct {
	Result model.CheckResult
}

// DoneMsg tells the program that reconcile and verification are over.
type DoneMsg struct{}

// statusRunning and statusPending extend model.OutcomeStatus for display.
const (
	statusRunning model.OutcomeStatus = "running"
	statusPending model.OutcomeStatus = "pending"
)

// Options configures a Model.
type Options struct {
	Title  string
	IDs    []string
	DryRun bool
	// Cancel is invoked on ctrl+c so the in-flight run stops at the next resource.
	Cancel func()
}

// Model contains the Bubbletea state for a vpsctl run.
type Model struct {
	title     string
	dryRun    bool
	cancel    func()
	order     []string
	outcomes  map[string]model.RunOutcome
	checks    []model.CheckResult
	total     int
	completed int
	finished  bool
	cancelled bool
	bar       progress.Model
}

// NewModel constructs a model tracking the resources in opts.IDs.
func NewModel(opts Options) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30

	m := Model{
		title:    opts.Title,
		dryRun:   opts.DryRun,
		cancel:   opts.Cancel,
		outcomes: make(map[string]model.RunOutcome, len(opts.IDs)),
		bar:      bar,
	}
	for _, id := range opts.IDs {
		m.ensure(id)
	}
	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return nil
}

// Total returns the number of tracked resources.
func (m Model) Total() int {
	return m.total
}

// Completed returns the number of resources with an outcome.
func (m Model) Completed() int {
	return m.completed
}

// IsFinished reports whether the run is over.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the run.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m *Model) ensure(id string) {
	if id == "" {
		return
	}
	if _, ok := m.outcomes[id]; ok {
		return
	}
	m.outcomes[id] = model.RunOutcome{ResourceID: id, Status: statusPending}
	m.order = append(m.order, id)
	m.total++
}

func done(status model.OutcomeStatus) bool {
	return status != statusPending && status != statusRunning
}
