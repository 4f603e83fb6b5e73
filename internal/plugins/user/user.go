package userplugin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/users"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// Spec is the `type: user` block.
type Spec struct {
	Name   string   `yaml:"name" validate:"required"`
	Home   string   `yaml:"home,omitempty"`
	Shell  string   `yaml:"shell,omitempty"`
	System bool     `yaml:"system,omitempty"`
	Groups []string `yaml:"groups,omitempty"`
}

type userKind struct{}

// New creates the user kind.
func New() plugin.Kind {
	return &userKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *userKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "user",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Ensures a local account exists with the given home, shell and groups.",
	}
}

func (k *userKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	return &Resource{
		Base:  plugin.BaseFor(res, "user "+spec.Name),
		spec:  spec,
		users: env.Users,
	}, nil
}

// Resource manages one account.
type Resource struct {
	resource.Base
	spec  Spec
	users *users.Manager
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

// drift returns the subset of the spec the existing account does not satisfy.
func (r *Resource) drift(u *users.User) users.Spec {
	d := users.Spec{Name: r.spec.Name}
	if r.spec.Home != "" && u.Home != r.spec.Home {
		d.Home = r.spec.Home
	}
	if r.spec.Shell != "" && u.Shell != r.spec.Shell {
		d.Shell = r.spec.Shell
	}
	for _, g := range r.spec.Groups {
		if !slices.Contains(u.Groups, g) {
			d.Groups = append(d.Groups, g)
		}
	}
	return d
}

func empty(d users.Spec) bool {
	return d.Home == "" && d.Shell == "" && len(d.Groups) == 0
}

// Probe looks the account up.
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	u, err := r.users.Lookup(ctx, r.spec.Name)
	if err != nil {
		return model.StateUnknown, err
	}
	if u == nil {
		return model.StateAbsent, nil
	}
	if empty(r.drift(u)) {
		return model.StatePresent, nil
	}
	return model.StateMismatched, nil
}

// Converge creates the account or patches only the drifted attributes. A
// failed lookup is handled like a missing account.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	u, err := r.users.Lookup(ctx, r.spec.Name)
	if err != nil || u == nil {
		return r.users.Create(ctx, users.Spec{
			Name:       r.spec.Name,
			Home:       r.spec.Home,
			Shell:      r.spec.Shell,
			System:     r.spec.System,
			CreateHome: r.spec.Home != "",
			Groups:     r.spec.Groups,
		})
	}
	return r.users.Modify(ctx, r.drift(u))
}

// Plan names the account changes.
func (r *Resource) Plan(ctx context.Context, _ model.State) (string, error) {
	u, err := r.users.Lookup(ctx, r.spec.Name)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "would create user " + r.spec.Name, nil
	}
	d := r.drift(u)
	var changes []string
	if d.Home != "" {
		changes = append(changes, fmt.Sprintf("home %s -> %s", u.Home, d.Home))
	}
	if d.Shell != "" {
		changes = append(changes, fmt.Sprintf("shell %s -> %s", u.Shell, d.Shell))
	}
	if len(d.Groups) > 0 {
		changes = append(changes, "add groups "+strings.Join(d.Groups, ","))
	}
	return fmt.Sprintf("would modify user %s: %s", r.spec.Name, strings.Join(changes, "; ")), nil
}
