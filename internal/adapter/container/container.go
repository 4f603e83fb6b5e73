// Package container drives the docker CLI.
package container

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
)

// BuildSpec describes an image build.
type BuildSpec struct {
	Tag        string
	Context    string
	Dockerfile string
	Args       map[string]string
}

// Runtime wraps the docker binary.
type Runtime struct {
	runner execx.Runner
	binary string
}

// NewRuntime returns a docker-backed Runtime.
func NewRuntime(runner execx.Runner) *Runtime {
	return &Runtime{runner: runner, binary: "docker"}
}

// ImageExists reports whether tag is present in the local image store.
func (r *Runtime) ImageExists(ctx context.Context, tag string) (bool, error) {
	_, err := r.runner.Run(ctx, execx.Command{Name: r.binary, Args: []string{"image", "inspect", "--format", "{{.Id}}", tag}})
	if err == nil {
		return true, nil
	}
	if execx.IsExit(err) {
		return false, nil
	}
	return false, fmt.Errorf("inspect image %s: %w", tag, err)
}

// Build builds spec.Tag from spec.Context.
func (r *Runtime) Build(ctx context.Context, spec BuildSpec) error {
	args := []string{"build", "-t", spec.Tag}
	if spec.Dockerfile != "" {
		args = append(args, "-f", spec.Dockerfile)
	}
	keys := make([]string, 0, len(spec.Args))
	for k := range spec.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", k+"="+spec.Args[k])
	}
	args = append(args, spec.Context)

	if _, err := r.runner.Run(ctx, execx.Command{Name: r.binary, Args: args}); err != nil {
		return fmt.Errorf("build image %s: %w", spec.Tag, err)
	}
	return nil
}
