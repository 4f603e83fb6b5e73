package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full vpsctl host document.
type Config struct {
	Version     string      `yaml:"version" validate:"required,semver"`
	Name        string      `yaml:"name" validate:"required,min=1,max=100"`
	Description string      `yaml:"description,omitempty"`
	Settings    Settings    `yaml:"settings,omitempty"`
	Application Application `yaml:"application,omitempty"`
	Resources   []Resource  `yaml:"resources" validate:"required,min=1,dive"`
	Checks      []Check     `yaml:"checks,omitempty" validate:"omitempty,dive"`
}

// Settings holds global execution parameters.
type Settings struct {
	// ServiceTimeout bounds the wait for a restarted service to report active, in seconds.
	ServiceTimeout int    `yaml:"service_timeout,omitempty" validate:"omitempty,min=1,max=3600"`
	CommandTimeout int    `yaml:"command_timeout,omitempty" validate:"omitempty,min=1,max=86400"`
	PackageManager string `yaml:"package_manager,omitempty" validate:"omitempty,oneof=apt"`
	AuditLog       string `yaml:"audit_log,omitempty"`
	AgeIdentity    string `yaml:"age_identity,omitempty"`
	Verbose        bool   `yaml:"verbose,omitempty"`
}

const (
	defaultServiceTimeout = 30 * time.Second
	defaultCommandTimeout = 30 * time.Minute
)

// ServiceTimeoutDuration returns the service poll bound with its default applied.
func (s Settings) ServiceTimeoutDuration() time.Duration {
	if s.ServiceTimeout <= 0 {
		return defaultServiceTimeout
	}
	return time.Duration(s.ServiceTimeout) * time.Second
}

// CommandTimeoutDuration returns the per-command bound with its default applied.
func (s Settings) CommandTimeoutDuration() time.Duration {
	if s.CommandTimeout <= 0 {
		return defaultCommandTimeout
	}
	return time.Duration(s.CommandTimeout) * time.Second
}

// Application describes the third-party application CLI wrapped by vpsctl.
type Application struct {
	Binary             string            `yaml:"binary,omitempty"`
	VersionArgs        []string          `yaml:"version_args,omitempty"`
	DoctorArgs         []string          `yaml:"doctor_args,omitempty"`
	HealthArgs         []string          `yaml:"health_args,omitempty"`
	GatewayRestartArgs []string          `yaml:"gateway_restart_args,omitempty"`
	Env                map[string]string `yaml:"env,omitempty"`
}

// Resource is one entry of the resources list. The kind-specific fields stay
// in the raw YAML node and are decoded by the plugin registered for Type.
type Resource struct {
	ID          string   `yaml:"id" validate:"required,resource_id"`
	Type        string   `yaml:"type" validate:"required"`
	Group       string   `yaml:"group,omitempty" validate:"omitempty,group"`
	Description string   `yaml:"description,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
	Enabled     bool     `yaml:"enabled,omitempty"`

	raw yaml.Node
}

// UnmarshalYAML decodes the common fields and keeps the node for DecodeConfig.
func (r *Resource) UnmarshalYAML(value *yaml.Node) error {
	type baseResource struct {
		ID          string   `yaml:"id"`
		Type        string   `yaml:"type"`
		Group       string   `yaml:"group"`
		Description string   `yaml:"description"`
		DependsOn   []string `yaml:"depends_on"`
		Enabled     *bool    `yaml:"enabled"`
	}

	var base baseResource
	if err := value.Decode(&base); err != nil {
		return err
	}

	r.ID = base.ID
	r.Type = base.Type
	r.Group = base.Group
	r.Description = base.Description
	r.DependsOn = append([]string(nil), base.DependsOn...)
	r.Enabled = true
	if base.Enabled != nil {
		r.Enabled = *base.Enabled
	}
	r.raw = *value
	return nil
}

// DecodeConfig decodes the kind-specific fields into out.
func (r *Resource) DecodeConfig(out any) error {
	return decodeRaw(&r.raw, r.ID, out)
}

// SetConfig replaces the kind-specific fields with the encoding of v.
func (r *Resource) SetConfig(v any) error {
	return encodeRaw(&r.raw, v)
}

// Check is one entry of the checks list.
type Check struct {
	Name  string `yaml:"name,omitempty"`
	Type  string `yaml:"type" validate:"required"`
	Group string `yaml:"group,omitempty" validate:"omitempty,group"`

	raw yaml.Node
}

// UnmarshalYAML decodes the common fields and keeps the node for DecodeConfig.
func (c *Check) UnmarshalYAML(value *yaml.Node) error {
	type baseCheck struct {
		Name  string `yaml:"name"`
		Type  string `yaml:"type"`
		Group string `yaml:"group"`
	}

	var base baseCheck
	if err := value.Decode(&base); err != nil {
		return err
	}
	c.Name = base.Name
	c.Type = base.Type
	c.Group = base.Group
	c.raw = *value
	return nil
}

// DecodeConfig decodes the check-specific fields into out.
func (c *Check) DecodeConfig(out any) error {
	return decodeRaw(&c.raw, c.Type, out)
}

// SetConfig replaces the check-specific fields with the encoding of v.
func (c *Check) SetConfig(v any) error {
	return encodeRaw(&c.raw, v)
}

// DisplayName returns the check name, falling back to its type.
func (c *Check) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Type
}

func decodeRaw(node *yaml.Node, owner string, out any) error {
	if node == nil || node.Kind == 0 {
		return fmt.Errorf("%s: configuration missing", owner)
	}
	return node.Decode(out)
}

func encodeRaw(node *yaml.Node, v any) error {
	if v == nil {
		*node = yaml.Node{}
		return nil
	}
	var encoded yaml.Node
	if err := encoded.Encode(v); err != nil {
		return err
	}
	*node = encoded
	return nil
}

// ResourceMap builds a lookup table for resources by ID.
func ResourceMap(resources []Resource) map[string]*Resource {
	out := make(map[string]*Resource, len(resources))
	for i := range resources {
		out[resources[i].ID] = &resources[i]
	}
	return out
}
