package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

type stubSpec struct {
	Target string `yaml:"target" validate:"required"`
}

type stubKind struct {
	name     string
	buildErr error
	wrongID  bool
}

func (k *stubKind) Metadata() Metadata {
	return Metadata{Name: k.name, Version: "1.0.0", APIVersion: "1.x"}
}

func (k *stubKind) Build(res config.Resource, _ *Env) (resource.Resource, error) {
	if k.buildErr != nil {
		return nil, k.buildErr
	}
	var spec stubSpec
	if err := Decode(res, &spec); err != nil {
		return nil, err
	}
	base := BaseFor(res, "target "+spec.Target)
	if k.wrongID {
		base.Name = "other"
	}
	return &resource.Func{
		Base:      base,
		ProbeFunc: func(context.Context) (model.State, error) { return model.StatePresent, nil },
	}, nil
}

func parse(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.ParseBytes("test.yaml", []byte(doc))
	require.NoError(t, err)
	return cfg
}

func TestRegistry_RegisterAndRetrieve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	k := &stubKind{name: "stub"}
	require.NoError(t, reg.Register(k))

	fetched, err := reg.Get("stub")
	require.NoError(t, err)
	require.Equal(t, k, fetched)
	require.Equal(t, []Metadata{k.Metadata()}, reg.List())
}

func TestRegistry_Rejections(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.Error(t, reg.Register(nil))
	require.Error(t, reg.Register(&stubKind{name: ""}))

	require.NoError(t, reg.Register(&stubKind{name: "stub"}))
	err := reg.Register(&stubKind{name: "stub"})
	var dup ErrDuplicateKind
	require.ErrorAs(t, err, &dup)

	_, err = reg.Get("unknown")
	var notFound ErrKindNotFound
	require.ErrorAs(t, err, &notFound)
	require.Contains(t, err.Error(), "unknown")
}

func TestDefaultRegistry(t *testing.T) {
	ResetRegistry()
	t.Cleanup(ResetRegistry)

	require.NoError(t, RegisterKind(&stubKind{name: "stub"}))
	_, err := Default().Get("stub")
	require.NoError(t, err)
}

func TestMetadataValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		meta Metadata
		ok   bool
	}{
		{"valid", Metadata{Name: "file", Version: "1.2.3", APIVersion: "1.x"}, true},
		{"missing name", Metadata{Version: "1.0.0", APIVersion: "1.x"}, false},
		{"missing version", Metadata{Name: "file", APIVersion: "1.x"}, false},
		{"bad version", Metadata{Name: "file", Version: "v1", APIVersion: "1.x"}, false},
		{"missing api", Metadata{Name: "file", Version: "1.0.0"}, false},
		{"bad api", Metadata{Name: "file", Version: "1.0.0", APIVersion: "1"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.meta.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestBuildAll(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubKind{name: "stub"}))

	cfg := parse(t, `version: "1.0"
name: host
resources:
  - id: one
    type: stub
    target: a
  - id: two
    type: stub
    group: sandbox
    depends_on: [one]
    description: custom
    target: b
  - id: off
    type: stub
    enabled: false
    target: c
`)

	built, err := reg.BuildAll(cfg, nil)
	require.NoError(t, err)
	require.Len(t, built, 2)
	require.Equal(t, "one", built[0].ID())
	require.Equal(t, "target a", built[0].Desired())
	require.Equal(t, resource.GroupSystem, built[0].Group())
	require.Equal(t, []string{"one"}, built[1].DependsOn())
	require.Equal(t, "custom", built[1].Desired())
	require.Equal(t, resource.GroupSandbox, built[1].Group())
}

func TestBuildAll_Errors(t *testing.T) {
	t.Parallel()

	doc := `version: "1.0"
name: host
resources:
  - id: one
    type: stub
`
	cases := []struct {
		name   string
		kind   *stubKind
		assert func(t *testing.T, err error)
	}{
		{
			name: "unknown kind",
			kind: &stubKind{name: "other"},
			assert: func(t *testing.T, err error) {
				var notFound ErrKindNotFound
				require.ErrorAs(t, err, &notFound)
			},
		},
		{
			name: "validation failure",
			kind: &stubKind{name: "stub"},
			assert: func(t *testing.T, err error) {
				var valErr *vpserrors.ValidationError
				require.ErrorAs(t, err, &valErr)
				require.Equal(t, "one.target", valErr.Field)
			},
		},
		{
			name: "build failure",
			kind: &stubKind{name: "stub", buildErr: errors.New("boom")},
			assert: func(t *testing.T, err error) {
				var buildErr *BuildError
				require.ErrorAs(t, err, &buildErr)
				require.Equal(t, "one", buildErr.ResourceID)
			},
		},
		{
			name: "mismatched id",
			kind: &stubKind{name: "stub", wrongID: true},
			assert: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "other")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reg := NewRegistry()
			require.NoError(t, reg.Register(tc.kind))
			cfg := parse(t, doc)
			if tc.kind.wrongID {
				require.NoError(t, cfg.Resources[0].SetConfig(map[string]string{"target": "x"}))
			}
			_, err := reg.BuildAll(cfg, nil)
			require.Error(t, err)
			tc.assert(t, err)
		})
	}
}
