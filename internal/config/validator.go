package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// ValidateConfig performs schema and cross-field validation on the configuration.
// Kind-specific fields are validated later by the plugin that decodes them.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return vpserrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	index := make(map[string]int, len(cfg.Resources))
	for i, res := range cfg.Resources {
		if _, exists := index[res.ID]; exists {
			return vpserrors.NewValidationError(fieldForResource(i, "id"), fmt.Sprintf("duplicate resource id %q", res.ID), nil)
		}
		index[res.ID] = i
	}

	for i, res := range cfg.Resources {
		for _, dep := range res.DependsOn {
			depIndex, ok := index[dep]
			if !ok {
				return vpserrors.NewValidationError(fieldForResource(i, "depends_on"), fmt.Sprintf("references unknown resource %q", dep), nil)
			}
			if dep == res.ID {
				return vpserrors.NewCyclicDependencyError([]string{dep, dep})
			}
			if res.Enabled && !cfg.Resources[depIndex].Enabled {
				return vpserrors.NewValidationError(fieldForResource(i, "depends_on"), fmt.Sprintf("depends on disabled resource %q", dep), nil)
			}
		}
	}

	if cycle := detectCycle(cfg.Resources); len(cycle) > 0 {
		return vpserrors.NewCyclicDependencyError(cycle)
	}

	return nil
}

// EnabledResources returns the resources that are not switched off, in declaration order.
func (c *Config) EnabledResources() []Resource {
	out := make([]Resource, 0, len(c.Resources))
	for _, res := range c.Resources {
		if res.Enabled {
			out = append(out, res)
		}
	}
	return out
}

// ValidateStruct runs the shared validator against a decoded kind configuration
// and reports failures against the owning resource.
func ValidateStruct(owner string, v any) error {
	if err := validatorInstance().Struct(v); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			field := owner + "." + yamlishFieldName(ves[0])
			return vpserrors.NewValidationError(field, fmt.Sprintf("%s failed validation for tag '%s'", field, ves[0].Tag()), err)
		}
		return vpserrors.NewValidationError(owner, err.Error(), err)
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return vpserrors.NewValidationError(field, msg, err)
	}

	return vpserrors.NewValidationError("config", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForResource(index int, field string) string {
	return fmt.Sprintf("resources[%d].%s", index, field)
}
