package appcli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx/execxtest"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
)

func TestClient_Defaults(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().
		OnStdout("claw --version", "claw 2.4.1").
		OnStdout("claw doctor", "all good").
		OnExit("claw health", 1)
	c := NewClient(runner, config.Application{Binary: "claw"})
	ctx := context.Background()

	out, err := c.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, "claw 2.4.1", out)

	out, err = c.Doctor(ctx)
	require.NoError(t, err)
	require.Equal(t, "all good", out)

	_, err = c.Health(ctx)
	require.True(t, execx.IsExit(err))

	_, err = c.GatewayRestart(ctx)
	require.NoError(t, err)
	require.Contains(t, runner.Calls(), "claw gateway restart")
}

func TestClient_CustomArgsAndEnv(t *testing.T) {
	t.Parallel()

	var seen execx.Command
	runner := execxtest.New()
	runner.Handler = func(cmd execx.Command) (execx.Result, error) {
		seen = cmd
		return execx.Result{Stdout: "ok"}, nil
	}
	c := NewClient(runner, config.Application{
		Binary:     "/opt/app/bin/app",
		HealthArgs: []string{"status", "--json"},
		Env:        map[string]string{"HOME": "/opt/app", "APP_ENV": "prod"},
	})

	_, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"status", "--json"}, seen.Args)
	require.Equal(t, []string{"APP_ENV=prod", "HOME=/opt/app"}, seen.Env)
}

func TestClient_NotConfigured(t *testing.T) {
	t.Parallel()

	c := NewClient(execxtest.New(), config.Application{})
	require.False(t, c.Configured())
	_, err := c.Version(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
}
