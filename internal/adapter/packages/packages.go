// Package packages talks to the apt package manager.
package packages

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
)

// Manager queries and installs Debian packages.
type Manager struct {
	runner execx.Runner
}

// NewManager returns an apt-backed Manager.
func NewManager(runner execx.Runner) *Manager {
	return &Manager{runner: runner}
}

// IsInstalled reports whether dpkg considers name fully installed.
func (m *Manager) IsInstalled(ctx context.Context, name string) (bool, error) {
	res, err := m.runner.Run(ctx, execx.Command{
		Name: "dpkg-query",
		Args: []string{"-W", "-f=${Status}", name},
	})
	if err != nil {
		if execx.IsExit(err) {
			return false, nil
		}
		return false, fmt.Errorf("query package %s: %w", name, err)
	}
	return strings.HasSuffix(strings.TrimSpace(res.Stdout), "install ok installed"), nil
}

// Missing returns the subset of names that are not installed, preserving order.
func (m *Manager) Missing(ctx context.Context, names []string) ([]string, error) {
	var missing []string
	for _, name := range names {
		ok, err := m.IsInstalled(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// Install installs names non-interactively.
func (m *Manager) Install(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]string{"install", "-y", "--no-install-recommends"}, names...)
	_, err := m.runner.Run(ctx, execx.Command{
		Name: "apt-get",
		Args: args,
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	})
	if err != nil {
		return fmt.Errorf("install %s: %w", strings.Join(names, ", "), err)
	}
	return nil
}
