package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResourceStartedMsg:
		m.ensure(msg.ID)
		o := m.outcomes[msg.ID]
		if !done(o.Status) {
			o.Status = statusRunning
			m.outcomes[msg.ID] = o
		}
		return m, nil
	case ResourceFinishedMsg:
		id := msg.Outcome.ResourceID
		if id == "" {
			return m, nil
		}
		m.ensure(id)
		if !done(m.outcomes[id].Status) {
			m.completed++
		}
		m.outcomes[id] = msg.Outcome
		return m, nil
	case CheckFinishedMsg:
		m.checks = append(m.checks, msg.Result)
		return m, nil
	case DoneMsg:
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		if w := msg.Width - 20; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil
	}

	return m, nil
}
