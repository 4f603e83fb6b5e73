package swapplugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
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

type host struct {
	dir   string
	swap  string
	fstab string
}

func newHost(t *testing.T) host {
	dir := t.TempDir()
	return host{dir: dir, swap: filepath.Join(dir, "swapfile"), fstab: filepath.Join(dir, "fstab")}
}

func build(t *testing.T, h host, runner *execxtest.Runner, size string) resource.Resource {
	t.Helper()
	res := config.Resource{ID: "swap", Type: "swap", Enabled: true}
	require.NoError(t, res.SetConfig(map[string]any{"path": h.swap, "size": size, "fstab": h.fstab}))
	built, err := New().Build(res, plugin.NewEnv(runner, nil, nil, ""))
	require.NoError(t, err)
	return built
}

func TestSwap_FreshHost(t *testing.T) {
	t.Parallel()

	h := newHost(t)
	require.NoError(t, os.WriteFile(h.fstab, []byte("UUID=abc / ext4 defaults 0 1"), 0o644))
	runner := execxtest.New()
	r := build(t, h, runner, "1KiB")

	state, err := r.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StateAbsent, state)

	plan, err := r.(resource.Planner).Plan(context.Background(), state)
	require.NoError(t, err)
	require.Contains(t, plan, "allocate 1.0 KiB at "+h.swap)

	before := len(runner.Calls())
	require.NoError(t, r.Converge(context.Background(), state))
	require.Equal(t, []string{
		"swapon --show=NAME --noheadings",
		"fallocate -l 1024 " + h.swap,
		"chmod 600 " + h.swap,
		"mkswap " + h.swap,
		"swapon " + h.swap,
	}, runner.Calls()[before:])

	table, err := os.ReadFile(h.fstab)
	require.NoError(t, err)
	require.Equal(t, "UUID=abc / ext4 defaults 0 1\n"+h.swap+" none swap sw 0 0\n", string(table))
}

func TestSwap_Present(t *testing.T) {
	t.Parallel()

	h := newHost(t)
	require.NoError(t, os.WriteFile(h.swap, make([]byte, 2048), 0o600))
	require.NoError(t, os.WriteFile(h.fstab, []byte(h.swap+" none swap sw 0 0\n"), 0o644))
	runner := execxtest.New().OnStdout("swapon --show=NAME --noheadings", h.swap+"\n")

	r := build(t, h, runner, "2KiB")
	state, err := r.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatePresent, state)

	require.NoError(t, r.Converge(context.Background(), state))
	require.Len(t, runner.Calls(), 1)
}

func TestSwap_InactiveOnlyNeedsSwapon(t *testing.T) {
	t.Parallel()

	h := newHost(t)
	require.NoError(t, os.WriteFile(h.swap, make([]byte, 1024), 0o600))
	require.NoError(t, os.WriteFile(h.fstab, []byte(h.swap+" none swap sw 0 0\n"), 0o644))
	runner := execxtest.New()

	r := build(t, h, runner, "1KiB")
	state, err := r.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StateMismatched, state)

	require.NoError(t, r.Converge(context.Background(), state))
	require.Equal(t, 1, runner.Count("swapon "+h.swap))
	require.Zero(t, runner.Count("mkswap"))
	require.Zero(t, runner.Count("fallocate"))
}

func TestSwap_ResizeTurnsSwapOff(t *testing.T) {
	t.Parallel()

	h := newHost(t)
	require.NoError(t, os.WriteFile(h.swap, make([]byte, 1024), 0o600))
	require.NoError(t, os.WriteFile(h.fstab, []byte(h.swap+" none swap sw 0 0\n"), 0o644))
	runner := execxtest.New().OnStdout("swapon --show=NAME --noheadings", h.swap)

	r := build(t, h, runner, "2KiB")
	require.NoError(t, r.Converge(context.Background(), model.StateMismatched))
	require.Equal(t, 1, runner.Count("swapoff "+h.swap))
	require.Equal(t, 1, runner.Count("fallocate -l 2048 "+h.swap))
	require.Equal(t, 1, runner.Count("swapon "+h.swap))
}

func TestSwap_UnreadableStateRunsFullSequence(t *testing.T) {
	t.Parallel()

	h := newHost(t)
	require.NoError(t, os.WriteFile(h.fstab, []byte("UUID=abc / ext4 defaults 0 1\n"), 0o644))
	runner := execxtest.New().On("swapon --show=NAME --noheadings", execx.Result{}, errors.New("exec: swapon: executable file not found"))
	r := build(t, h, runner, "1KiB")

	state, err := r.Probe(context.Background())
	require.Error(t, err)
	require.Equal(t, model.StateUnknown, state)

	before := len(runner.Calls())
	require.NoError(t, r.Converge(context.Background(), state))
	require.Equal(t, []string{
		"swapon --show=NAME --noheadings",
		"fallocate -l 1024 " + h.swap,
		"chmod 600 " + h.swap,
		"mkswap " + h.swap,
		"swapon " + h.swap,
	}, runner.Calls()[before:])

	table, err := os.ReadFile(h.fstab)
	require.NoError(t, err)
	require.Equal(t, "UUID=abc / ext4 defaults 0 1\n"+h.swap+" none swap sw 0 0\n", string(table))
}

func TestSwap_UnreadableFstabIsNotOverwritten(t *testing.T) {
	t.Parallel()

	h := newHost(t)
	require.NoError(t, os.Mkdir(h.fstab, 0o755))
	runner := execxtest.New()
	r := build(t, h, runner, "1KiB")

	state, err := r.Probe(context.Background())
	require.Error(t, err)
	require.Equal(t, model.StateUnknown, state)

	require.ErrorContains(t, r.Converge(context.Background(), state), "swap entry not added")
	require.Equal(t, 1, runner.Count("fallocate"))
	require.Equal(t, 1, runner.Count("swapon "+h.swap))
	info, err := os.Stat(h.fstab)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestSwap_InvalidSize(t *testing.T) {
	t.Parallel()

	res := config.Resource{ID: "swap", Type: "swap", Enabled: true}
	require.NoError(t, res.SetConfig(map[string]any{"size": "lots"}))
	_, err := New().Build(res, plugin.NewEnv(execxtest.New(), nil, nil, ""))
	var valErr *vpserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
}
