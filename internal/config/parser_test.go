package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	validYAML := `version: "1.0"
name: "edge-01"
description: "Sample host"
settings:
  service_timeout: 10
application:
  binary: claw
resources:
  - id: swap
    type: swap
    size: 2G
  - id: app-service
    type: service
    group: application
    depends_on: [swap]
    unit: claw-gateway
checks:
  - name: claw on path
    type: command_exists
    command: claw
`

	invalidYAML := `version: [1, 0]
name: "Broken"
resources:
  - id: missing_type
`

	missingRequired := `version: "1.0"
name: "No Resources"
`

	badVersion := `version: "beta"
name: "Bad Version"
resources:
  - id: step
    type: command
    command: "echo"
`

	cases := []struct {
		name     string
		contents string
		assert   func(t *testing.T, cfg *Config, err error)
	}{
		{
			name:     "valid configuration is parsed",
			contents: validYAML,
			assert: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				require.Equal(t, "edge-01", cfg.Name)
				require.Len(t, cfg.Resources, 2)
				require.Equal(t, "swap", cfg.Resources[0].ID)
				require.True(t, cfg.Resources[0].Enabled)
				require.Equal(t, []string{"swap"}, cfg.Resources[1].DependsOn)
				require.Equal(t, "application", cfg.Resources[1].Group)
				require.Len(t, cfg.Checks, 1)
				require.Equal(t, "claw on path", cfg.Checks[0].DisplayName())
				require.Equal(t, "claw", cfg.Application.Binary)
			},
		},
		{
			name:     "invalid yaml returns parse error",
			contents: invalidYAML,
			assert: func(t *testing.T, cfg *Config, err error) {
				require.Nil(t, cfg)
				var parseErr *vpserrors.ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Contains(t, parseErr.Message, "cannot unmarshal")
				require.Equal(t, 1, parseErr.Line)
			},
		},
		{
			name:     "missing required fields returns validation error",
			contents: missingRequired,
			assert: func(t *testing.T, cfg *Config, err error) {
				require.Nil(t, cfg)
				var validationErr *vpserrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "resources", validationErr.Field)
			},
		},
		{
			name:     "semver is enforced",
			contents: badVersion,
			assert: func(t *testing.T, cfg *Config, err error) {
				var validationErr *vpserrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "version", validationErr.Field)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "vpsctl.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.contents), 0o600))

			cfg, err := ParseConfig(path)
			tc.assert(t, cfg, err)
		})
	}
}

func TestParseConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	var parseErr *vpserrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestResource_DecodeConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseBytes("inline", []byte(`version: "1.0"
name: host
resources:
  - id: motd
    type: file
    enabled: false
    path: /etc/motd
    mode: "0644"
`))
	require.NoError(t, err)

	var spec struct {
		Path string `yaml:"path"`
		Mode string `yaml:"mode"`
	}
	require.NoError(t, cfg.Resources[0].DecodeConfig(&spec))
	require.Equal(t, "/etc/motd", spec.Path)
	require.Equal(t, "0644", spec.Mode)
	require.False(t, cfg.Resources[0].Enabled)
	require.Empty(t, cfg.EnabledResources())

	require.NoError(t, cfg.Resources[0].SetConfig(map[string]string{"path": "/etc/issue"}))
	require.NoError(t, cfg.Resources[0].DecodeConfig(&spec))
	require.Equal(t, "/etc/issue", spec.Path)

	var empty Resource
	require.Error(t, empty.DecodeConfig(&spec))
}

func TestResolvePath(t *testing.T) {
	require.Equal(t, "/tmp/x.yaml", ResolvePath("/tmp/x.yaml"))

	t.Setenv(EnvConfigPath, "/srv/vpsctl.yaml")
	require.Equal(t, "/srv/vpsctl.yaml", ResolvePath(""))

	t.Setenv(EnvConfigPath, "")
	require.Equal(t, DefaultPath, ResolvePath(""))
}

func TestSettingsDurations(t *testing.T) {
	t.Parallel()

	var s Settings
	require.Equal(t, defaultServiceTimeout, s.ServiceTimeoutDuration())
	require.Equal(t, defaultCommandTimeout, s.CommandTimeoutDuration())

	s.ServiceTimeout = 5
	s.CommandTimeout = 60
	require.Equal(t, "5s", s.ServiceTimeoutDuration().String())
	require.Equal(t, "1m0s", s.CommandTimeoutDuration().String())
}
