package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx/execxtest"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().
		OnStdout("getent passwd claw", "claw:x:998:998::/opt/claw:/usr/sbin/nologin").
		OnStdout("id -nG claw", "claw docker").
		OnExit("getent passwd ghost", 2).
		OnStdout("getent passwd junk", "junk:x")
	m := NewManager(runner)
	ctx := context.Background()

	u, err := m.Lookup(ctx, "claw")
	require.NoError(t, err)
	require.Equal(t, &User{Name: "claw", UID: 998, GID: 998, Home: "/opt/claw", Shell: "/usr/sbin/nologin", Groups: []string{"claw", "docker"}}, u)
	require.True(t, u.InGroups([]string{"docker"}))
	require.False(t, u.InGroups([]string{"sudo"}))

	u, err = m.Lookup(ctx, "ghost")
	require.NoError(t, err)
	require.Nil(t, u)

	_, err = m.Lookup(ctx, "junk")
	require.Error(t, err)
}

func TestCreateAndModify(t *testing.T) {
	t.Parallel()

	runner := execxtest.New()
	m := NewManager(runner)
	ctx := context.Background()

	spec := Spec{Name: "claw", Home: "/opt/claw", Shell: "/usr/sbin/nologin", System: true, CreateHome: true, Groups: []string{"docker"}}
	require.NoError(t, m.Create(ctx, spec))
	require.NoError(t, m.Modify(ctx, spec))
	require.NoError(t, m.Modify(ctx, Spec{Name: "claw"}))

	require.Equal(t, []string{
		"useradd --system --create-home --home-dir /opt/claw --shell /usr/sbin/nologin --groups docker claw",
		"usermod --home /opt/claw --shell /usr/sbin/nologin --append --groups docker claw",
	}, runner.Calls())
}

func TestCreateFailure(t *testing.T) {
	t.Parallel()

	runner := execxtest.New().OnExit("useradd claw", 9)
	require.Error(t, NewManager(runner).Create(context.Background(), Spec{Name: "claw"}))
}
