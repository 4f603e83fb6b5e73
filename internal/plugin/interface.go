package plugin

import (
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/appcli"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/container"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/files"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/firewall"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/packages"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/services"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/users"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/logger"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	"github.com/alexisbeaulieu97/vpsctl/internal/secrets"
)

// Kind builds resources of one type from their YAML block.
//
// Build runs once at startup. The returned resource must hold only
// configuration and adapter references: every fact about the host is read
// in Probe.
type Kind interface {
	// Metadata returns the kind's identity.
	Metadata() Metadata

	// Build decodes res and returns a resource wired to the adapters in env.
	// Decoding or validation problems are reported as *errors.ValidationError.
	Build(res config.Resource, env *Env) (resource.Resource, error)
}

// Env bundles the collaborator adapters shared by every kind.
type Env struct {
	Runner    execx.Runner
	Packages  *packages.Manager
	Services  *services.Manager
	Files     *files.Store
	Container *container.Runtime
	App       *appcli.Client
	Firewall  *firewall.Manager
	Users     *users.Manager
	Secrets   *secrets.Decrypter
	Logger    *logger.Logger

	// BaseDir resolves relative paths in resource blocks (template, source,
	// build context). It is the directory of the config file.
	BaseDir string
}

// NewEnv wires the default adapters around runner.
func NewEnv(runner execx.Runner, cfg *config.Config, log *logger.Logger, baseDir string) *Env {
	if log == nil {
		log = logger.Nop()
	}
	var settings config.Settings
	var app config.Application
	if cfg != nil {
		settings = cfg.Settings
		app = cfg.Application
	}
	return &Env{
		Runner:    runner,
		Packages:  packages.NewManager(runner),
		Services:  services.NewManager(runner, services.WithTimeout(settings.ServiceTimeoutDuration())),
		Files:     files.NewStore(),
		Container: container.NewRuntime(runner),
		App:       appcli.NewClient(runner, app),
		Firewall:  firewall.NewManager(runner),
		Users:     users.NewManager(runner),
		Secrets:   secrets.NewDecrypter(settings.AgeIdentity),
		Logger:    log,
		BaseDir:   baseDir,
	}
}
