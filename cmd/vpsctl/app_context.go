package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/logger"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// appContext bundles what every host-facing command needs.
type appContext struct {
	path      string
	cfg       *config.Config
	log       *logger.Logger
	env       *plugin.Env
	resources []resource.Resource
}

// newRunner is swapped by tests for a scripted runner.
var newRunner = func(cfg *config.Config) execx.Runner {
	return execx.OSRunner{Timeout: cfg.Settings.CommandTimeoutDuration()}
}

// loadConfig resolves, validates and parses the host document.
func loadConfig(root *rootFlags) (string, *config.Config, error) {
	path, err := validateConfigPath(config.ResolvePath(root.configPath))
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.ParseConfig(path)
	if err != nil {
		return "", nil, err
	}
	return path, cfg, nil
}

// loadApp parses the document and builds every enabled resource. quiet
// lowers the default log level while the progress display owns the terminal.
func loadApp(root *rootFlags, stderr io.Writer, humanLogs, quiet bool) (*appContext, error) {
	path, cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(root, cfg, stderr, humanLogs, quiet)
	if err != nil {
		return nil, err
	}

	env := plugin.NewEnv(newRunner(cfg), cfg, log, filepath.Dir(path))
	resources, err := plugin.Default().BuildAll(cfg, env)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"config":    path,
		"host":      cfg.Name,
		"resources": len(resources),
		"checks":    len(cfg.Checks),
	}).Debug("configuration loaded")

	return &appContext{path: path, cfg: cfg, log: log, env: env, resources: resources}, nil
}

func newLogger(root *rootFlags, cfg *config.Config, stderr io.Writer, human, quiet bool) (*logger.Logger, error) {
	// An empty level defers to VPSCTL_LOG_LEVEL.
	level := ""
	switch {
	case root.verbose || (cfg != nil && cfg.Settings.Verbose):
		level = "debug"
	case quiet && os.Getenv(logger.EnvLevel) == "":
		level = "warn"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: human, Writer: stderr})
}
