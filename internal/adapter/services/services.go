// Package services manages systemd units.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultInterval = 500 * time.Millisecond
)

// Manager wraps systemctl.
type Manager struct {
	runner   execx.Runner
	timeout  time.Duration
	interval time.Duration
}

// Option customises a Manager.
type Option func(*Manager)

// WithTimeout bounds the wait for a unit to become active after a restart.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithPollInterval sets how often the unit state is polled after a restart.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewManager returns a systemctl-backed Manager.
func NewManager(runner execx.Runner, opts ...Option) *Manager {
	m := &Manager{runner: runner, timeout: defaultTimeout, interval: defaultInterval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsActive reports whether unit is running.
func (m *Manager) IsActive(ctx context.Context, unit string) (bool, error) {
	return m.query(ctx, "is-active", unit)
}

// IsEnabled reports whether unit starts at boot.
func (m *Manager) IsEnabled(ctx context.Context, unit string) (bool, error) {
	return m.query(ctx, "is-enabled", unit)
}

func (m *Manager) query(ctx context.Context, verb, unit string) (bool, error) {
	_, err := m.runner.Run(ctx, execx.Command{Name: "systemctl", Args: []string{verb, "--quiet", unit}})
	if err == nil {
		return true, nil
	}
	if execx.IsExit(err) {
		return false, nil
	}
	return false, fmt.Errorf("systemctl %s %s: %w", verb, unit, err)
}

// Enable marks unit to start at boot.
func (m *Manager) Enable(ctx context.Context, unit string) error {
	if _, err := m.runner.Run(ctx, execx.Command{Name: "systemctl", Args: []string{"enable", unit}}); err != nil {
		return fmt.Errorf("enable %s: %w", unit, err)
	}
	return nil
}

// Reload asks systemd to re-read unit files.
func (m *Manager) Reload(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, execx.Command{Name: "systemctl", Args: []string{"daemon-reload"}}); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}

// Restart restarts unit and waits until it reports active or the timeout elapses.
func (m *Manager) Restart(ctx context.Context, unit string) error {
	if _, err := m.runner.Run(ctx, execx.Command{Name: "systemctl", Args: []string{"restart", unit}}); err != nil {
		return fmt.Errorf("restart %s: %w", unit, err)
	}
	return m.WaitActive(ctx, unit)
}

// WaitActive polls until unit is active.
func (m *Manager) WaitActive(ctx context.Context, unit string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		active, err := m.IsActive(ctx, unit)
		if err != nil {
			return err
		}
		if active {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service %s not active after %s", unit, m.timeout)
		case <-ticker.C:
		}
	}
}
