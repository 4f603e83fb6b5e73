package gatewayplugin

import (
	"context"
	"errors"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/appcli"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// Spec is the `type: gateway` block. It has no fields; the commands come
// from the top-level application section.
type Spec struct{}

type gatewayKind struct{}

// New creates the gateway kind.
func New() plugin.Kind {
	return &gatewayKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *gatewayKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "gateway",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Restarts the application gateway until its health command passes.",
	}
}

func (k *gatewayKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	base := plugin.BaseFor(res, "application gateway healthy")
	if res.Group == "" {
		base.GroupName = resource.GroupApplication
	}
	return &Resource{Base: base, app: env.App}, nil
}

// Resource tracks the application's gateway health.
type Resource struct {
	resource.Base
	app *appcli.Client
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

// Probe runs the health command. A non-zero exit is absent; failing to run it
// at all is unknown.
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	_, err := r.app.Health(ctx)
	switch {
	case err == nil:
		return model.StatePresent, nil
	case errors.Is(err, appcli.ErrNotConfigured):
		return model.StateUnknown, err
	case execx.IsExit(err):
		return model.StateAbsent, nil
	default:
		return model.StateUnknown, err
	}
}

// Converge restarts the gateway.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	_, err := r.app.GatewayRestart(ctx)
	return err
}

// Plan names the restart command.
func (r *Resource) Plan(_ context.Context, _ model.State) (string, error) {
	if !r.app.Configured() {
		return "", appcli.ErrNotConfigured
	}
	return "would restart the " + r.app.Binary() + " gateway", nil
}
