package packageplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/packages"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// Spec is the `type: package` block.
type Spec struct {
	Packages []string `yaml:"packages" validate:"required,min=1,dive,required"`
}

type packageKind struct{}

// New creates the package kind.
func New() plugin.Kind {
	return &packageKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *packageKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "package",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Installs system packages with apt.",
	}
}

func (k *packageKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	return &Resource{
		Base:     plugin.BaseFor(res, "packages installed: "+strings.Join(spec.Packages, ", ")),
		spec:     spec,
		packages: env.Packages,
	}, nil
}

// Resource ensures a set of packages is installed.
type Resource struct {
	resource.Base
	spec     Spec
	packages *packages.Manager
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

// Probe reports present when every package is installed, absent when none is.
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	missing, err := r.packages.Missing(ctx, r.spec.Packages)
	if err != nil {
		return model.StateUnknown, err
	}
	switch len(missing) {
	case 0:
		return model.StatePresent, nil
	case len(r.spec.Packages):
		return model.StateAbsent, nil
	default:
		return model.StateMismatched, nil
	}
}

// Converge installs only the packages that are missing right now. When
// the package database cannot be read every declared package is installed.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	missing, err := r.packages.Missing(ctx, r.spec.Packages)
	if err != nil {
		return r.packages.Install(ctx, r.spec.Packages...)
	}
	if len(missing) == 0 {
		return nil
	}
	return r.packages.Install(ctx, missing...)
}

// Plan lists the packages that would be installed.
func (r *Resource) Plan(ctx context.Context, _ model.State) (string, error) {
	missing, err := r.packages.Missing(ctx, r.spec.Packages)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("would install: %s", strings.Join(missing, ", ")), nil
}
