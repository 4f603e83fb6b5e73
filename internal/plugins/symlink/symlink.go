package symlinkplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// Spec is the `type: symlink` block. Path is the link, Target what it points at.
type Spec struct {
	Path   string `yaml:"path" validate:"required"`
	Target string `yaml:"target" validate:"required"`
	// Force replaces a regular file found at Path.
	Force bool `yaml:"force,omitempty"`
}

type symlinkKind struct{}

// New creates the symlink kind.
func New() plugin.Kind {
	return &symlinkKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *symlinkKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "symlink",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Keeps a symbolic link pointing at its target.",
	}
}

func (k *symlinkKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	return &Resource{Base: plugin.BaseFor(res, spec.Path+" -> "+spec.Target), spec: spec}, nil
}

// Resource manages one link.
type Resource struct {
	resource.Base
	spec Spec
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

// current returns what sits at Path: exists, isLink, and the link target.
func (r *Resource) current() (bool, bool, string, error) {
	info, err := os.Lstat(r.spec.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, false, "", nil
	}
	if err != nil {
		return false, false, "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return true, false, "", nil
	}
	target, err := os.Readlink(r.spec.Path)
	if err != nil {
		return true, true, "", err
	}
	return true, true, target, nil
}

// Probe reads the link without following it.
func (r *Resource) Probe(_ context.Context) (model.State, error) {
	exists, isLink, target, err := r.current()
	switch {
	case err != nil:
		return model.StateUnknown, err
	case !exists:
		return model.StateAbsent, nil
	case isLink && target == r.spec.Target:
		return model.StatePresent, nil
	default:
		return model.StateMismatched, nil
	}
}

// Converge creates the link, replacing a wrong link. A regular file is only
// replaced with force.
func (r *Resource) Converge(_ context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	exists, isLink, target, err := r.current()
	if err != nil && !isLink {
		exists = false
	}
	if err == nil && isLink && target == r.spec.Target {
		return nil
	}
	if exists {
		if !isLink && !r.spec.Force {
			return fmt.Errorf("%s exists and is not a symlink (set force to replace it)", r.spec.Path)
		}
		if err := os.Remove(r.spec.Path); err != nil {
			return fmt.Errorf("remove %s: %w", r.spec.Path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(r.spec.Path), 0o755); err != nil {
		return err
	}
	return os.Symlink(r.spec.Target, r.spec.Path)
}

// Plan describes the link change.
func (r *Resource) Plan(_ context.Context, _ model.State) (string, error) {
	exists, isLink, target, err := r.current()
	if err != nil {
		return "", err
	}
	switch {
	case !exists:
		return fmt.Sprintf("would link %s -> %s", r.spec.Path, r.spec.Target), nil
	case isLink:
		return fmt.Sprintf("would relink %s: %s -> %s", r.spec.Path, target, r.spec.Target), nil
	default:
		return fmt.Sprintf("would replace file %s with link to %s", r.spec.Path, r.spec.Target), nil
	}
}
