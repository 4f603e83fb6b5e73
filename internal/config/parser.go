package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// EnvConfigPath names the environment variable that overrides the default config location.
const EnvConfigPath = "VPSCTL_CONFIG"

// DefaultPath is used when neither --config nor VPSCTL_CONFIG is set.
const DefaultPath = "/etc/vpsctl/vpsctl.yaml"

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ResolvePath picks the config path from the flag value, the environment, or the default.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// ParseConfig loads a configuration file from disk, validates it, and returns the resulting model.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vpserrors.NewParseError(path, 0, err)
	}
	return ParseBytes(path, data)
}

// ParseBytes decodes and validates an in-memory document. path is only used in errors.
func ParseBytes(path string, data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		return nil, vpserrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
