package gatewayplugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/appcli"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx/execxtest"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

func build(t *testing.T, runner *execxtest.Runner, binary string) resource.Resource {
	t.Helper()
	res := config.Resource{ID: "application-service", Type: "gateway", Enabled: true}
	cfg := &config.Config{Application: config.Application{Binary: binary}}
	built, err := New().Build(res, plugin.NewEnv(runner, cfg, nil, ""))
	require.NoError(t, err)
	return built
}

func TestGateway_UnhealthyRestarts(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().OnExit("myapp health", 1)
	r := build(t, runner, "myapp")
	require.Equal(t, resource.GroupApplication, r.Group())

	state, err := r.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StateAbsent, state)

	require.NoError(t, r.Converge(context.Background(), state))
	require.Equal(t, 1, runner.Count("myapp gateway restart"))
}

func TestGateway_Healthy(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().OnStdout("myapp health", "ok")
	r := build(t, runner, "myapp")

	state, err := r.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatePresent, state)
	require.NoError(t, r.Converge(context.Background(), state))
	require.Zero(t, runner.Count("myapp gateway"))
}

func TestGateway_NotConfigured(t *testing.T) {
	t.Parallel()

	state, err := build(t, execxtest.New(), "").Probe(context.Background())
	require.ErrorIs(t, err, appcli.ErrNotConfigured)
	require.Equal(t, model.StateUnknown, state)
}
