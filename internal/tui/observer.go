package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// Observer forwards reconciler callbacks as Bubbletea messages.
type Observer struct {
	send func(tea.Msg)
}

// NewObserver returns an observer delivering messages through send,
// typically (*tea.Program).Send.
func NewObserver(send func(tea.Msg)) *Observer {
	return &Observer{send: send}
}

// ResourceStarted implements engine.Observer.
func (o *Observer) ResourceStarted(res resource.Resource) {
	o.send(ResourceStartedMsg{ID: res.ID()})
}

// ResourceFinished implements engine.Observer.
func (o *Observer) ResourceFinished(outcome model.RunOutcome) {
	o.send(ResourceFinishedMsg{Outcome: outcome})
}

// CheckFinished forwards a verification result.
func (o *Observer) CheckFinished(result model.CheckResult) {
	o.send(CheckFinishedMsg{Result: result})
}

// Done signals the end of the run.
func (o *Observer) Done() {
	o.send(DoneMsg{})
}
