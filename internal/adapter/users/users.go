// Package users manages local accounts through the shadow utilities.
package users

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
)

// User is a passwd entry plus supplementary groups.
type User struct {
	Name   string
	UID    int
	GID    int
	Home   string
	Shell  string
	Groups []string
}

// InGroups reports whether the user belongs to every group in want.
func (u *User) InGroups(want []string) bool {
	for _, g := range want {
		if !slices.Contains(u.Groups, g) {
			return false
		}
	}
	return true
}

// Spec is the desired account.
type Spec struct {
	Name       string
	Home       string
	Shell      string
	System     bool
	CreateHome bool
	Groups     []string
}

// Manager wraps getent, useradd and usermod.
type Manager struct {
	runner execx.Runner
}

// NewManager returns a Manager.
func NewManager(runner execx.Runner) *Manager {
	return &Manager{runner: runner}
}

// Lookup returns the account, or nil when it does not exist.
func (m *Manager) Lookup(ctx context.Context, name string) (*User, error) {
	res, err := m.runner.Run(ctx, execx.Command{Name: "getent", Args: []string{"passwd", name}})
	if err != nil {
		if execx.IsExit(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getent passwd %s: %w", name, err)
	}

	u, err := parsePasswd(res.Stdout)
	if err != nil {
		return nil, err
	}

	groups, err := m.runner.Run(ctx, execx.Command{Name: "id", Args: []string{"-nG", name}})
	if err != nil {
		return nil, fmt.Errorf("id -nG %s: %w", name, err)
	}
	u.Groups = strings.Fields(groups.Stdout)
	return u, nil
}

// Create adds the account.
func (m *Manager) Create(ctx context.Context, spec Spec) error {
	var args []string
	if spec.System {
		args = append(args, "--system")
	}
	if spec.CreateHome {
		args = append(args, "--create-home")
	}
	if spec.Home != "" {
		args = append(args, "--home-dir", spec.Home)
	}
	if spec.Shell != "" {
		args = append(args, "--shell", spec.Shell)
	}
	if len(spec.Groups) > 0 {
		args = append(args, "--groups", strings.Join(spec.Groups, ","))
	}
	args = append(args, spec.Name)

	if _, err := m.runner.Run(ctx, execx.Command{Name: "useradd", Args: args}); err != nil {
		return fmt.Errorf("useradd %s: %w", spec.Name, err)
	}
	return nil
}

// Modify brings an existing account in line with spec. Groups are appended, never removed.
func (m *Manager) Modify(ctx context.Context, spec Spec) error {
	var args []string
	if spec.Home != "" {
		args = append(args, "--home", spec.Home)
	}
	if spec.Shell != "" {
		args = append(args, "--shell", spec.Shell)
	}
	if len(spec.Groups) > 0 {
		args = append(args, "--append", "--groups", strings.Join(spec.Groups, ","))
	}
	if len(args) == 0 {
		return nil
	}
	args = append(args, spec.Name)

	if _, err := m.runner.Run(ctx, execx.Command{Name: "usermod", Args: args}); err != nil {
		return fmt.Errorf("usermod %s: %w", spec.Name, err)
	}
	return nil
}

func parsePasswd(line string) (*User, error) {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) != 7 {
		return nil, fmt.Errorf("malformed passwd entry %q", line)
	}
	uid, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("malformed uid in %q: %w", line, err)
	}
	gid, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("malformed gid in %q: %w", line, err)
	}
	return &User{Name: fields[0], UID: uid, GID: gid, Home: fields[5], Shell: fields[6]}, nil
}
