package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry map[string]any

func TestLoggerInfoWithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"resource": "swap-file", "group": "system"})
	log.Info("reconciling")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "reconciling", entry["message"])
	require.Equal(t, "swap-file", entry["resource"])
	require.Equal(t, "system", entry["group"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log.Debug("this should not appear")
	require.Equal(t, "", strings.TrimSpace(buf.String()))
}

func TestLoggerErrorIncludesContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log = log.With("resource", "firewall-rules")
	log.Error(errors.New("boom"), "failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "failed", entry["message"])
	require.Equal(t, "firewall-rules", entry["resource"])
	require.Equal(t, "boom", entry["error"])
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "chatty", Writer: &bytes.Buffer{}})
	require.ErrorContains(t, err, `invalid log level "chatty"`)
}

func TestLoggerLevelFromEnvironment(t *testing.T) {
	t.Setenv(EnvLevel, "warn")

	buf := &bytes.Buffer{}
	log, err := New(Options{Writer: buf})
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	t.Setenv(EnvLevel, "loud")
	_, err = New(Options{Writer: buf})
	require.ErrorContains(t, err, EnvLevel)
}

func TestScopedLoggersTagResourceAndCheck(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", Writer: buf})
	require.NoError(t, err)

	log.ForResource("swap-file", "system").Debug("probing")
	log.ForCheck("ufw active").Warn("check failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var res, chk logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &res))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &chk))
	require.Equal(t, "swap-file", res[FieldResource])
	require.Equal(t, "system", res[FieldGroup])
	require.Equal(t, "ufw active", chk[FieldCheck])
	require.NotContains(t, chk, FieldResource)
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	t.Parallel()

	var nilLogger *Logger
	require.NotPanics(t, func() {
		nilLogger.Info("ignored")
		nilLogger.Error(errors.New("ignored"), "ignored")
		require.Nil(t, nilLogger.With("k", "v"))
		require.Nil(t, nilLogger.ForResource("swap", "system"))
		require.Nil(t, nilLogger.ForCheck("ufw active"))
	})

	require.NotPanics(t, func() {
		Nop().Warn("discarded")
	})
}
