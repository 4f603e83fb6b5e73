package imageplugin

import (
	"context"
	"path/filepath"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/container"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// Spec is the `type: image` block. Context and Dockerfile are resolved
// against the config directory when relative.
type Spec struct {
	Tag        string            `yaml:"tag" validate:"required"`
	Context    string            `yaml:"context" validate:"required"`
	Dockerfile string            `yaml:"dockerfile,omitempty"`
	BuildArgs  map[string]string `yaml:"build_args,omitempty"`
}

type imageKind struct{}

// New creates the image kind.
func New() plugin.Kind {
	return &imageKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *imageKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "image",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Builds a container image when its tag is missing.",
	}
}

func (k *imageKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	spec.Context = resolve(env.BaseDir, spec.Context)
	spec.Dockerfile = resolve(env.BaseDir, spec.Dockerfile)

	base := plugin.BaseFor(res, "image "+spec.Tag)
	if res.Group == "" {
		base.GroupName = resource.GroupSandbox
	}
	return &Resource{Base: base, spec: spec, runtime: env.Container}, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// Resource ensures one image tag exists locally.
type Resource struct {
	resource.Base
	spec    Spec
	runtime *container.Runtime
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

// Probe inspects the tag. Images are never mismatched: an existing tag is
// taken as current.
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	ok, err := r.runtime.ImageExists(ctx, r.spec.Tag)
	if err != nil {
		return model.StateUnknown, err
	}
	if ok {
		return model.StatePresent, nil
	}
	return model.StateAbsent, nil
}

// Converge builds the image.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	return r.runtime.Build(ctx, container.BuildSpec{
		Tag:        r.spec.Tag,
		Context:    r.spec.Context,
		Dockerfile: r.spec.Dockerfile,
		Args:       r.spec.BuildArgs,
	})
}

// Plan names the build.
func (r *Resource) Plan(_ context.Context, _ model.State) (string, error) {
	return "would build " + r.spec.Tag + " from " + r.spec.Context, nil
}
