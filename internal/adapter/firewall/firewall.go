// Package firewall manages host firewall policy through ufw.
package firewall

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
)

var defaultEntry = regexp.MustCompile(`(\w+) \((\w+)\)`)

// Status is the parsed firewall state.
type Status struct {
	Active bool
	// Defaults maps a direction (incoming, outgoing, routed) to its policy.
	Defaults map[string]string
	// Rules holds added user rules in ufw syntax, e.g. "allow 22/tcp".
	Rules []string
}

// HasRule reports whether rule (e.g. "allow 22/tcp") is among the added rules.
func (s Status) HasRule(rule string) bool {
	return slices.Contains(s.Rules, NormalizeRule(rule))
}

// NormalizeRule collapses whitespace and lowercases the action keyword.
func NormalizeRule(rule string) string {
	fields := strings.Fields(rule)
	if len(fields) > 0 {
		fields[0] = strings.ToLower(fields[0])
	}
	return strings.Join(fields, " ")
}

// Manager wraps the ufw binary.
type Manager struct {
	runner execx.Runner
}

// NewManager returns a ufw-backed Manager.
func NewManager(runner execx.Runner) *Manager {
	return &Manager{runner: runner}
}

// Status reads activation, default policies and added rules.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	res, err := m.runner.Run(ctx, execx.Command{Name: "ufw", Args: []string{"status", "verbose"}})
	if err != nil {
		return Status{}, fmt.Errorf("ufw status: %w", err)
	}
	st := parseStatus(res.Stdout)

	added, err := m.runner.Run(ctx, execx.Command{Name: "ufw", Args: []string{"show", "added"}})
	if err != nil {
		return Status{}, fmt.Errorf("ufw show added: %w", err)
	}
	st.Rules = parseAdded(added.Stdout)
	return st, nil
}

// SetDefault sets the default policy for direction.
func (m *Manager) SetDefault(ctx context.Context, direction, policy string) error {
	if _, err := m.runner.Run(ctx, execx.Command{Name: "ufw", Args: []string{"default", policy, direction}}); err != nil {
		return fmt.Errorf("ufw default %s %s: %w", policy, direction, err)
	}
	return nil
}

// Apply adds rule, e.g. "allow 22/tcp" or "limit ssh".
func (m *Manager) Apply(ctx context.Context, rule string) error {
	args := strings.Fields(NormalizeRule(rule))
	if len(args) == 0 {
		return fmt.Errorf("empty firewall rule")
	}
	if _, err := m.runner.Run(ctx, execx.Command{Name: "ufw", Args: args}); err != nil {
		return fmt.Errorf("ufw %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

// Allow adds an allow rule for spec, e.g. "22/tcp".
func (m *Manager) Allow(ctx context.Context, spec string) error {
	return m.Apply(ctx, "allow "+spec)
}

// Enable activates the firewall without prompting.
func (m *Manager) Enable(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, execx.Command{Name: "ufw", Args: []string{"--force", "enable"}}); err != nil {
		return fmt.Errorf("ufw enable: %w", err)
	}
	return nil
}

func parseStatus(out string) Status {
	st := Status{Defaults: make(map[string]string)}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Status:"):
			st.Active = strings.TrimSpace(strings.TrimPrefix(line, "Status:")) == "active"
		case strings.HasPrefix(line, "Default:"):
			for _, match := range defaultEntry.FindAllStringSubmatch(line, -1) {
				st.Defaults[match[2]] = match[1]
			}
		}
	}
	return st
}

func parseAdded(out string) []string {
	var rules []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "ufw ") {
			continue
		}
		rules = append(rules, NormalizeRule(strings.TrimPrefix(line, "ufw ")))
	}
	return rules
}
