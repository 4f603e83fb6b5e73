package firewallplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/firewall"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

var (
	directions = []string{"incoming", "outgoing", "routed"}
	actions    = map[string]bool{"allow": true, "deny": true, "reject": true, "limit": true}
)

// Spec is the `type: firewall` block. A rule without an action keyword is
// an allow rule.
type Spec struct {
	Defaults map[string]string `yaml:"defaults,omitempty" validate:"omitempty,dive,keys,oneof=incoming outgoing routed,endkeys,oneof=allow deny reject"`
	Rules    []string          `yaml:"rules,omitempty" validate:"omitempty,dive,required"`
}

type firewallKind struct{}

// New creates the firewall kind.
func New() plugin.Kind {
	return &firewallKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *firewallKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "firewall",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Enables ufw with default policies and allow rules.",
	}
}

func (k *firewallKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	rules := make([]string, 0, len(spec.Rules))
	for i, rule := range spec.Rules {
		normalized := firewall.NormalizeRule(rule)
		if normalized == "" {
			return nil, vpserrors.NewValidationError(fmt.Sprintf("%s.rules[%d]", res.ID, i), "empty rule", nil)
		}
		if !actions[strings.Fields(normalized)[0]] {
			normalized = "allow " + normalized
		}
		rules = append(rules, normalized)
	}
	return &Resource{
		Base:     plugin.BaseFor(res, fmt.Sprintf("firewall active with %d rule(s)", len(rules))),
		defaults: spec.Defaults,
		rules:    rules,
		firewall: env.Firewall,
	}, nil
}

// Resource manages the host firewall.
type Resource struct {
	resource.Base
	defaults map[string]string
	rules    []string
	firewall *firewall.Manager
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

type pending struct {
	defaults []string
	rules    []string
	enable   bool
}

func (p pending) none() bool {
	return len(p.defaults) == 0 && len(p.rules) == 0 && !p.enable
}

func (r *Resource) diff(st firewall.Status) pending {
	var p pending
	for _, dir := range directions {
		want, ok := r.defaults[dir]
		if ok && st.Defaults[dir] != want {
			p.defaults = append(p.defaults, dir)
		}
	}
	for _, rule := range r.rules {
		if !st.HasRule(rule) {
			p.rules = append(p.rules, rule)
		}
	}
	p.enable = !st.Active
	return p
}

// Probe reads ufw status.
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	st, err := r.firewall.Status(ctx)
	if err != nil {
		return model.StateUnknown, err
	}
	p := r.diff(st)
	switch {
	case p.none():
		return model.StatePresent, nil
	case !st.Active && len(p.rules) == len(r.rules):
		return model.StateAbsent, nil
	default:
		return model.StateMismatched, nil
	}
}

// Converge sets defaults and adds rules before enabling, so an allow rule for
// ssh is in place when the firewall comes up. An unreadable status applies
// the whole configuration.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	st, err := r.firewall.Status(ctx)
	if err != nil {
		st = firewall.Status{}
	}
	p := r.diff(st)
	for _, dir := range p.defaults {
		if err := r.firewall.SetDefault(ctx, dir, r.defaults[dir]); err != nil {
			return err
		}
	}
	for _, rule := range p.rules {
		if err := r.firewall.Apply(ctx, rule); err != nil {
			return err
		}
	}
	if p.enable {
		return r.firewall.Enable(ctx)
	}
	return nil
}

// Plan lists the ufw commands that would run.
func (r *Resource) Plan(ctx context.Context, _ model.State) (string, error) {
	st, err := r.firewall.Status(ctx)
	if err != nil {
		return "", err
	}
	p := r.diff(st)
	var lines []string
	for _, dir := range p.defaults {
		lines = append(lines, fmt.Sprintf("ufw default %s %s", r.defaults[dir], dir))
	}
	for _, rule := range p.rules {
		lines = append(lines, "ufw "+rule)
	}
	if p.enable {
		lines = append(lines, "ufw --force enable")
	}
	return "would run: " + strings.Join(lines, "; "), nil
}
