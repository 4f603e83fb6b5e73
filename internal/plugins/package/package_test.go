package packageplugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx/execxtest"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

func build(t *testing.T, runner *execxtest.Runner, block map[string]any) resource.Resource {
	t.Helper()
	res := config.Resource{ID: "base-packages", Type: "package", Enabled: true}
	require.NoError(t, res.SetConfig(block))
	built, err := New().Build(res, plugin.NewEnv(runner, nil, nil, ""))
	require.NoError(t, err)
	return built
}

func TestBuild_RequiresPackages(t *testing.T) {
	t.Parallel()

	res := config.Resource{ID: "empty", Type: "package"}
	require.NoError(t, res.SetConfig(map[string]any{"packages": []string{}}))
	_, err := New().Build(res, plugin.NewEnv(execxtest.New(), nil, nil, ""))
	var valErr *vpserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestProbe_States(t *testing.T) {
	t.Parallel()

	installed := "install ok installed"
	cases := []struct {
		name  string
		setup func(r *execxtest.Runner)
		want  model.State
	}{
		{
			name: "all installed",
			setup: func(r *execxtest.Runner) {
				r.OnStdout("dpkg-query -W -f=${Status} ufw", installed).OnStdout("dpkg-query -W -f=${Status} fail2ban", installed)
			},
			want: model.StatePresent,
		},
		{
			name: "none installed",
			setup: func(r *execxtest.Runner) {
				r.OnExit("dpkg-query -W -f=${Status} ufw", 1).OnExit("dpkg-query -W -f=${Status} fail2ban", 1)
			},
			want: model.StateAbsent,
		},
		{
			name: "partial",
			setup: func(r *execxtest.Runner) {
				r.OnStdout("dpkg-query -W -f=${Status} ufw", installed).OnExit("dpkg-query -W -f=${Status} fail2ban", 1)
			},
			want: model.StateMismatched,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			runner := execxtest.New()
			tc.setup(runner)
			r := build(t, runner, map[string]any{"packages": []string{"ufw", "fail2ban"}})

			state, err := r.Probe(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.want, state)
			require.Zero(t, runner.Count("apt-get"))
		})
	}
}

func TestConverge_InstallsOnlyMissing(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().
		OnStdout("dpkg-query -W -f=${Status} ufw", "install ok installed").
		OnExit("dpkg-query -W -f=${Status} fail2ban", 1)
	r := build(t, runner, map[string]any{"packages": []string{"ufw", "fail2ban"}})

	require.NoError(t, r.Converge(context.Background(), model.StateMismatched))
	require.Contains(t, runner.Calls(), "apt-get install -y --no-install-recommends fail2ban")

	plan, err := r.(resource.Planner).Plan(context.Background(), model.StateMismatched)
	require.NoError(t, err)
	require.Equal(t, "would install: fail2ban", plan)
}

func TestConverge_NoOpWhenPresent(t *testing.T) {
	t.Parallel()

	runner := execxtest.New()
	r := build(t, runner, map[string]any{"packages": []string{"ufw"}})

	require.NoError(t, r.Converge(context.Background(), model.StatePresent))
	require.Empty(t, runner.Calls())
}

func TestConverge_UnreadableDatabaseInstallsEverything(t *testing.T) {
	t.Parallel()

	notFound := errors.New("exec: dpkg-query: executable file not found")
	runner := execxtest.New().
		On("dpkg-query -W -f=${Status} ufw", execx.Result{}, notFound).
		On("dpkg-query -W -f=${Status} fail2ban", execx.Result{}, notFound)
	r := build(t, runner, map[string]any{"packages": []string{"ufw", "fail2ban"}})

	state, err := r.Probe(context.Background())
	require.Error(t, err)
	require.Equal(t, model.StateUnknown, state)

	require.NoError(t, r.Converge(context.Background(), state))
	require.Contains(t, runner.Calls(), "apt-get install -y --no-install-recommends ufw fail2ban")

	runner = execxtest.New().On("dpkg-query -W -f=${Status} ufw", execx.Result{}, notFound)
	r = build(t, runner, map[string]any{"packages": []string{"ufw"}})
	require.NoError(t, r.Converge(context.Background(), model.StateMismatched))
	require.Equal(t, 1, runner.Count("apt-get install"))
}
