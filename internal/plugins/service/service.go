package serviceplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/services"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// Spec is the `type: service` block.
type Spec struct {
	Unit string `yaml:"unit" validate:"required"`
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled_at_boot,omitempty"`
}

func (s Spec) wantEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type serviceKind struct{}

// New creates the service kind.
func New() plugin.Kind {
	return &serviceKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *serviceKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "service",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Keeps a systemd unit enabled and running.",
	}
}

func (k *serviceKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	desired := spec.Unit + " active"
	if spec.wantEnabled() {
		desired = spec.Unit + " enabled and active"
	}
	return &Resource{
		Base:     plugin.BaseFor(res, desired),
		spec:     spec,
		services: env.Services,
	}, nil
}

// Resource keeps one unit running.
type Resource struct {
	resource.Base
	spec     Spec
	services *services.Manager
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

type unitState struct {
	enabled bool
	active  bool
}

func (r *Resource) read(ctx context.Context) (unitState, error) {
	active, err := r.services.IsActive(ctx, r.spec.Unit)
	if err != nil {
		return unitState{}, err
	}
	enabled := true
	if r.spec.wantEnabled() {
		if enabled, err = r.services.IsEnabled(ctx, r.spec.Unit); err != nil {
			return unitState{}, err
		}
	}
	return unitState{enabled: enabled, active: active}, nil
}

// Probe reports present when the unit is active (and enabled when requested).
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	st, err := r.read(ctx)
	if err != nil {
		return model.StateUnknown, err
	}
	switch {
	case st.active && st.enabled:
		return model.StatePresent, nil
	case !st.active && !st.enabled:
		return model.StateAbsent, nil
	default:
		return model.StateMismatched, nil
	}
}

// Converge enables the unit if needed and restarts it when inactive, waiting
// for it to report active.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	st, err := r.read(ctx)
	if err != nil {
		st = unitState{}
	}
	if !st.enabled {
		if err := r.services.Enable(ctx, r.spec.Unit); err != nil {
			return err
		}
	}
	if !st.active {
		if err := r.services.Restart(ctx, r.spec.Unit); err != nil {
			return err
		}
	}
	return nil
}

// Plan lists the systemctl actions that would run.
func (r *Resource) Plan(ctx context.Context, _ model.State) (string, error) {
	st, err := r.read(ctx)
	if err != nil {
		return "", err
	}
	var actions []string
	if !st.enabled {
		actions = append(actions, "enable")
	}
	if !st.active {
		actions = append(actions, "restart")
	}
	return fmt.Sprintf("would %s %s", strings.Join(actions, " and "), r.spec.Unit), nil
}
