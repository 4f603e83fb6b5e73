package commandplugin

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

const defaultShell = "/bin/sh"

// Spec is the `type: command` block. Check decides the state and Command converges it.
type Spec struct {
	Check   string            `yaml:"check" validate:"required"`
	Command string            `yaml:"command" validate:"required"`
	Shell   string            `yaml:"shell,omitempty"`
	WorkDir string            `yaml:"workdir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

type commandKind struct{}

// New creates the command kind.
func New() plugin.Kind {
	return &commandKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *commandKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "command",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Runs a shell command when its check command fails.",
	}
}

func (k *commandKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	if spec.Shell == "" {
		spec.Shell = defaultShell
	}
	if spec.WorkDir != "" && !filepath.IsAbs(spec.WorkDir) && env.BaseDir != "" {
		spec.WorkDir = filepath.Join(env.BaseDir, spec.WorkDir)
	}
	return &Resource{
		Base:   plugin.BaseFor(res, "check passes: "+spec.Check),
		spec:   spec,
		runner: env.Runner,
	}, nil
}

// Resource runs Command until Check succeeds.
type Resource struct {
	resource.Base
	spec   Spec
	runner execx.Runner
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

// Probe runs the check command. A non-zero exit means absent.
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	_, err := r.runner.Run(ctx, r.command(r.spec.Check))
	if err == nil {
		return model.StatePresent, nil
	}
	if execx.IsExit(err) {
		return model.StateAbsent, nil
	}
	return model.StateUnknown, err
}

// Converge runs the command.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	if _, err := r.runner.Run(ctx, r.command(r.spec.Command)); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// Plan shows the command that would run.
func (r *Resource) Plan(context.Context, model.State) (string, error) {
	return "would run: " + r.spec.Command, nil
}

func (r *Resource) command(script string) execx.Command {
	return execx.Command{
		Name: r.spec.Shell,
		Args: []string{"-c", script},
		Dir:  r.spec.WorkDir,
		Env:  buildEnv(r.spec.Env),
	}
}

func buildEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, extra[k]))
	}
	return env
}
