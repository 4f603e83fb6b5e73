package check

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx/execxtest"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

func checkOf(t *testing.T, name, typ string, block map[string]any) config.Check {
	t.Helper()
	c := config.Check{Name: name, Type: typ}
	if block == nil {
		block = map[string]any{}
	}
	require.NoError(t, c.SetConfig(block))
	return c
}

const ssOutput = `LISTEN 0      4096   0.0.0.0:22        0.0.0.0:*
LISTEN 0      511    127.0.0.1:8080    0.0.0.0:*
`

func TestFromConfig_BuiltinChecks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sshd := filepath.Join(dir, "sshd_config")
	require.NoError(t, os.WriteFile(sshd, []byte("PermitRootLogin no\n"), 0o644))

	runner := execxtest.New().
		OnStdout("dpkg-query -W -f=${Status} ufw", "install ok installed").
		OnExit("dpkg-query -W -f=${Status} fail2ban", 1).
		OnExit("systemctl is-active --quiet docker", 3).
		OnStdout("ss -ltnH", ssOutput).
		OnStdout("docker image inspect --format {{.Id}} sandbox:latest", "sha256:1").
		OnStdout("myapp --version", "myapp 2.4.1\n").
		OnExit("myapp doctor", 1).
		OnStdout("myapp health", "healthy")

	cfg := &config.Config{
		Application: config.Application{Binary: "myapp"},
		Checks: []config.Check{
			checkOf(t, "", "command_exists", map[string]any{"command": "sh"}),
			checkOf(t, "sshd config", "file_exists", map[string]any{"path": sshd}),
			checkOf(t, "root login off", "path_contains", map[string]any{"path": sshd, "pattern": `(?m)^PermitRootLogin no$`}),
			checkOf(t, "packages", "package_installed", map[string]any{"packages": []string{"ufw", "fail2ban"}}),
			checkOf(t, "docker", "service_active", map[string]any{"unit": "docker"}),
			checkOf(t, "ssh port", "port_listening", map[string]any{"port": 22}),
			checkOf(t, "http port", "port_listening", map[string]any{"port": 80}),
			checkOf(t, "sandbox image", "image_exists", map[string]any{"tag": "sandbox:latest"}),
			checkOf(t, "version", "app_version", map[string]any{"contains": "2.4"}),
			checkOf(t, "doctor", "app_doctor", nil),
			checkOf(t, "health", "app_health", nil),
		},
	}

	reg, err := FromConfig(cfg, plugin.NewEnv(runner, cfg, nil, ""), nil)
	require.NoError(t, err)

	report := reg.RunAll(context.Background(), nil)
	got := map[string]model.CheckResult{}
	for _, r := range report.Results() {
		got[r.Name] = r
	}
	require.Equal(t, 11, report.Len())

	require.True(t, got["command_exists"].Passed)
	require.True(t, got["sshd config"].Passed)
	require.True(t, got["root login off"].Passed)
	require.False(t, got["packages"].Passed)
	require.Equal(t, "missing: fail2ban", got["packages"].Detail)
	require.False(t, got["docker"].Passed)
	require.True(t, got["ssh port"].Passed)
	require.False(t, got["http port"].Passed)
	require.True(t, got["sandbox image"].Passed)
	require.Equal(t, resource.GroupSandbox, got["sandbox image"].Group)
	require.True(t, got["version"].Passed)
	require.Equal(t, "myapp 2.4.1", got["version"].Detail)
	require.Equal(t, resource.GroupApplication, got["version"].Group)
	require.False(t, got["doctor"].Passed)
	require.Nil(t, got["doctor"].Error)
	require.True(t, got["health"].Passed)
}

type staticResource struct {
	resource.Base
	state model.State
}

func (s *staticResource) Probe(context.Context) (model.State, error) { return s.state, nil }

func (s *staticResource) Converge(context.Context, model.State) error { return nil }

func TestFromConfig_ResourceCheck(t *testing.T) {
	t.Parallel()

	swap := &staticResource{Base: resource.Base{Name: "swap", Description: "2 GiB swap"}, state: model.StatePresent}
	app := &staticResource{Base: resource.Base{Name: "app", GroupName: resource.GroupApplication}, state: model.StateMismatched}

	cfg := &config.Config{Checks: []config.Check{
		checkOf(t, "", "resource", map[string]any{"resource": "swap"}),
		checkOf(t, "", "resource", map[string]any{"resource": "app"}),
	}}
	reg, err := FromConfig(cfg, nil, []resource.Resource{swap, app})
	require.NoError(t, err)

	results := reg.RunAll(context.Background(), nil).Results()
	require.True(t, results[0].Passed)
	require.Equal(t, "2 GiB swap", results[0].Detail)
	require.False(t, results[1].Passed)
	require.Equal(t, "app is mismatched", results[1].Detail)
	require.Equal(t, resource.GroupApplication, results[1].Group)
}

func TestFromConfig_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]config.Check{
		"unknown type":     checkOf(t, "", "telepathy", nil),
		"missing field":    checkOf(t, "", "file_exists", nil),
		"bad pattern":      checkOf(t, "", "path_contains", map[string]any{"path": "/x", "pattern": "("}),
		"unknown resource": checkOf(t, "", "resource", map[string]any{"resource": "ghost"}),
		"bad port":         checkOf(t, "", "port_listening", map[string]any{"port": 70000}),
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := FromConfig(&config.Config{Checks: []config.Check{c}}, nil, nil)
			var valErr *vpserrors.ValidationError
			require.ErrorAs(t, err, &valErr)
		})
	}
}

func TestTypesSorted(t *testing.T) {
	t.Parallel()

	types := Types()
	require.Len(t, types, 11)
	require.Equal(t, "app_doctor", types[0])
	require.Equal(t, "service_active", types[len(types)-1])
}
