package firewallplugin

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

const (
	inactive = "Status: inactive\n"
	active   = `Status: active
Logging: on (low)
Default: deny (incoming), allow (outgoing), disabled (routed)
New profiles: skip
`
	added = `Added user rules (see 'ufw status' for running firewall):
ufw allow 22/tcp
ufw limit 443/tcp
`
)

func build(t *testing.T, runner *execxtest.Runner, block map[string]any) resource.Resource {
	t.Helper()
	res := config.Resource{ID: "firewall", Type: "firewall", Enabled: true}
	require.NoError(t, res.SetConfig(block))
	built, err := New().Build(res, plugin.NewEnv(runner, nil, nil, ""))
	require.NoError(t, err)
	return built
}

var block = map[string]any{
	"defaults": map[string]string{"incoming": "deny", "outgoing": "allow"},
	"rules":    []string{"22/tcp", "limit 443/tcp"},
}

func TestFirewall_Present(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().OnStdout("ufw status verbose", active).OnStdout("ufw show added", added)
	state, err := build(t, runner, block).Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatePresent, state)
}

func TestFirewall_FreshHostRulesBeforeEnable(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().OnStdout("ufw status verbose", inactive)
	r := build(t, runner, block)

	state, err := r.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StateAbsent, state)

	plan, err := r.(resource.Planner).Plan(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, "would run: ufw default deny incoming; ufw default allow outgoing; ufw allow 22/tcp; ufw limit 443/tcp; ufw --force enable", plan)

	before := len(runner.Calls())
	require.NoError(t, r.Converge(context.Background(), state))
	require.Equal(t, []string{
		"ufw status verbose",
		"ufw show added",
		"ufw default deny incoming",
		"ufw default allow outgoing",
		"ufw allow 22/tcp",
		"ufw limit 443/tcp",
		"ufw --force enable",
	}, runner.Calls()[before:])
}

func TestFirewall_MissingRuleOnly(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().
		OnStdout("ufw status verbose", active).
		OnStdout("ufw show added", "ufw allow 22/tcp\n")
	r := build(t, runner, block)

	state, err := r.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StateMismatched, state)

	require.NoError(t, r.Converge(context.Background(), state))
	require.Equal(t, 1, runner.Count("ufw limit 443/tcp"))
	require.Zero(t, runner.Count("ufw allow 22/tcp"))
	require.Zero(t, runner.Count("ufw --force enable"))
	require.Zero(t, runner.Count("ufw default"))
}

func TestFirewall_UnreadableStatusAppliesEverything(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().On("ufw status verbose", execx.Result{}, errors.New("exec: ufw: executable file not found"))
	r := build(t, runner, block)

	state, err := r.Probe(context.Background())
	require.Error(t, err)
	require.Equal(t, model.StateUnknown, state)

	before := len(runner.Calls())
	require.NoError(t, r.Converge(context.Background(), state))
	require.Equal(t, []string{
		"ufw status verbose",
		"ufw default deny incoming",
		"ufw default allow outgoing",
		"ufw allow 22/tcp",
		"ufw limit 443/tcp",
		"ufw --force enable",
	}, runner.Calls()[before:])
}

func TestFirewall_RejectsUnknownDirection(t *testing.T) {
	t.Parallel()

	res := config.Resource{ID: "firewall", Type: "firewall", Enabled: true}
	require.NoError(t, res.SetConfig(map[string]any{"defaults": map[string]string{"sideways": "deny"}}))
	_, err := New().Build(res, plugin.NewEnv(execxtest.New(), nil, nil, ""))
	var valErr *vpserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
}
