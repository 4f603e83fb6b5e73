package plugin

import (
	"fmt"

	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/logger"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Decode reads the kind-specific fields of res into out and validates them.
func Decode(res config.Resource, out any) error {
	if err := res.DecodeConfig(out); err != nil {
		return vpserrors.NewValidationError(res.ID, fmt.Sprintf("decode %s block: %v", res.Type, err), err)
	}
	return config.ValidateStruct(res.ID, out)
}

// BaseFor returns the identity fields for res with desired as the fallback description.
func BaseFor(res config.Resource, desired string) resource.Base {
	description := res.Description
	if description == "" {
		description = desired
	}
	return resource.Base{
		Name:        res.ID,
		Deps:        append([]string(nil), res.DependsOn...),
		GroupName:   res.Group,
		Description: description,
	}
}

// BuildAll constructs every enabled resource in declaration order.
func (r *Registry) BuildAll(cfg *config.Config, env *Env) ([]resource.Resource, error) {
	if cfg == nil {
		return nil, vpserrors.NewValidationError("config", "configuration is nil", nil)
	}

	if env == nil {
		env = NewEnv(nil, cfg, nil, "")
	}

	enabled := cfg.EnabledResources()
	out := make([]resource.Resource, 0, len(enabled))
	for _, res := range enabled {
		kind, err := r.Get(res.Type)
		if err != nil {
			return nil, NewBuildError(res.ID, res.Type, err)
		}
		built, err := kind.Build(res, env)
		if err != nil {
			return nil, NewBuildError(res.ID, res.Type, err)
		}
		if built.ID() != res.ID {
			return nil, NewBuildError(res.ID, res.Type, fmt.Errorf("kind returned resource %q", built.ID()))
		}
		env.Logger.ForResource(res.ID, res.Group).With(logger.FieldKind, res.Type).Debug("built")
		out = append(out, built)
	}
	return out, nil
}
