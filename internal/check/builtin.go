package check

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Blocks of the built-in check types.
type (
	CommandExists struct {
		Command string `yaml:"command" validate:"required"`
	}
	FileExists struct {
		Path string `yaml:"path" validate:"required"`
	}
	PathContains struct {
		Path    string `yaml:"path" validate:"required"`
		Pattern string `yaml:"pattern" validate:"required"`
	}
	PackageInstalled struct {
		Packages []string `yaml:"packages" validate:"required,min=1,dive,required"`
	}
	ServiceActive struct {
		Unit string `yaml:"unit" validate:"required"`
	}
	PortListening struct {
		Port  int    `yaml:"port" validate:"required,min=1,max=65535"`
		Proto string `yaml:"proto,omitempty" validate:"omitempty,oneof=tcp udp"`
	}
	ImageExists struct {
		Tag string `yaml:"tag" validate:"required"`
	}
	AppVersion struct {
		Contains string `yaml:"contains,omitempty"`
	}
	ResourcePresent struct {
		Resource string `yaml:"resource" validate:"required"`
	}
)

// builder turns one config block into a predicate and its default group.
type builder func(c config.Check, env *plugin.Env, resources map[string]resource.Resource) (Predicate, string, error)

var builders = map[string]builder{
	"command_exists":    buildCommandExists,
	"file_exists":       buildFileExists,
	"path_contains":     buildPathContains,
	"package_installed": buildPackageInstalled,
	"service_active":    buildServiceActive,
	"port_listening":    buildPortListening,
	"image_exists":      buildImageExists,
	"app_version":       buildAppVersion,
	"app_doctor":        buildAppDoctor,
	"app_health":        buildAppHealth,
	"resource":          buildResource,
}

// Types returns the sorted names of the built-in check types.
func Types() []string {
	return slices.Sorted(maps.Keys(builders))
}

// FromConfig registers every check of cfg. Resources are the built catalog,
// used by the resource check type.
func FromConfig(cfg *config.Config, env *plugin.Env, resources []resource.Resource, opts ...Option) (*Registry, error) {
	if env == nil {
		env = plugin.NewEnv(nil, cfg, nil, "")
	}
	byID := make(map[string]resource.Resource, len(resources))
	for _, res := range resources {
		byID[res.ID()] = res
	}

	reg := NewRegistry(append([]Option{WithLogger(env.Logger)}, opts...)...)
	for i, c := range cfg.Checks {
		build, ok := builders[c.Type]
		if !ok {
			return nil, vpserrors.NewValidationError(fmt.Sprintf("checks[%d].type", i), fmt.Sprintf("unknown check type %q", c.Type), nil)
		}
		predicate, group, err := build(c, env, byID)
		if err != nil {
			return nil, err
		}
		if c.Group != "" {
			group = c.Group
		}
		if err := reg.Register(c.DisplayName(), group, predicate); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func decode(c config.Check, out any) error {
	if err := c.DecodeConfig(out); err != nil {
		return vpserrors.NewValidationError(c.DisplayName(), fmt.Sprintf("decode %s check: %v", c.Type, err), err)
	}
	return config.ValidateStruct(c.DisplayName(), out)
}

func buildCommandExists(c config.Check, _ *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec CommandExists
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	return func(context.Context) (bool, string, error) {
		path, err := execx.LookPath(spec.Command)
		if err != nil {
			return false, spec.Command + " not found on PATH", nil
		}
		return true, path, nil
	}, resource.GroupSystem, nil
}

func buildFileExists(c config.Check, _ *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec FileExists
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	return func(context.Context) (bool, string, error) {
		if _, err := os.Stat(spec.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, spec.Path + " does not exist", nil
			}
			return false, "", err
		}
		return true, spec.Path, nil
	}, resource.GroupSystem, nil
}

func buildPathContains(c config.Check, _ *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec PathContains
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	pattern, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return nil, "", vpserrors.NewValidationError(c.DisplayName()+".pattern", err.Error(), err)
	}
	return func(context.Context) (bool, string, error) {
		data, err := os.ReadFile(spec.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, spec.Path + " does not exist", nil
		}
		if err != nil {
			return false, "", err
		}
		if !pattern.Match(data) {
			return false, fmt.Sprintf("pattern %q not found in %s", spec.Pattern, spec.Path), nil
		}
		return true, "", nil
	}, resource.GroupSystem, nil
}

func buildPackageInstalled(c config.Check, env *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec PackageInstalled
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	return func(ctx context.Context) (bool, string, error) {
		missing, err := env.Packages.Missing(ctx, spec.Packages)
		if err != nil {
			return false, "", err
		}
		if len(missing) > 0 {
			return false, "missing: " + strings.Join(missing, ", "), nil
		}
		return true, "", nil
	}, resource.GroupSystem, nil
}

func buildServiceActive(c config.Check, env *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec ServiceActive
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	return func(ctx context.Context) (bool, string, error) {
		active, err := env.Services.IsActive(ctx, spec.Unit)
		if err != nil {
			return false, "", err
		}
		if !active {
			return false, spec.Unit + " is not active", nil
		}
		return true, "", nil
	}, resource.GroupSystem, nil
}

func buildPortListening(c config.Check, env *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec PortListening
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	flag := "-ltnH"
	if spec.Proto == "udp" {
		flag = "-lunH"
	}
	return func(ctx context.Context) (bool, string, error) {
		res, err := env.Runner.Run(ctx, execx.Command{Name: "ss", Args: []string{flag}})
		if err != nil {
			return false, "", fmt.Errorf("ss: %w", err)
		}
		if listening(res.Stdout, spec.Port) {
			return true, "", nil
		}
		return false, fmt.Sprintf("nothing listening on port %d", spec.Port), nil
	}, resource.GroupSystem, nil
}

// listening reports whether any local address column in ss output ends in :port.
func listening(out string, port int) bool {
	suffix := ":" + strconv.Itoa(port)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 4 && strings.HasSuffix(fields[3], suffix) {
			return true
		}
	}
	return false
}

func buildImageExists(c config.Check, env *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec ImageExists
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	return func(ctx context.Context) (bool, string, error) {
		ok, err := env.Container.ImageExists(ctx, spec.Tag)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, spec.Tag + " not found", nil
		}
		return true, "", nil
	}, resource.GroupSandbox, nil
}

// appPassed maps an application CLI result to a check outcome: a non-zero
// exit fails the check, anything else that prevents running it is a fault.
func appPassed(out string, err error) (bool, string, error) {
	if err != nil {
		if execx.IsExit(err) {
			return false, firstLine(out), nil
		}
		return false, "", err
	}
	return true, firstLine(out), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func buildAppVersion(c config.Check, env *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	var spec AppVersion
	if err := c.DecodeConfig(&spec); err != nil {
		return nil, "", vpserrors.NewValidationError(c.DisplayName(), err.Error(), err)
	}
	return func(ctx context.Context) (bool, string, error) {
		out, err := env.App.Version(ctx)
		passed, detail, err := appPassed(out, err)
		if err != nil || !passed {
			return passed, detail, err
		}
		if spec.Contains != "" && !strings.Contains(out, spec.Contains) {
			return false, fmt.Sprintf("version %q does not contain %q", detail, spec.Contains), nil
		}
		return true, detail, nil
	}, resource.GroupApplication, nil
}

func buildAppDoctor(_ config.Check, env *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	return func(ctx context.Context) (bool, string, error) {
		return appPassed(env.App.Doctor(ctx))
	}, resource.GroupApplication, nil
}

func buildAppHealth(_ config.Check, env *plugin.Env, _ map[string]resource.Resource) (Predicate, string, error) {
	return func(ctx context.Context) (bool, string, error) {
		return appPassed(env.App.Health(ctx))
	}, resource.GroupApplication, nil
}

func buildResource(c config.Check, _ *plugin.Env, resources map[string]resource.Resource) (Predicate, string, error) {
	var spec ResourcePresent
	if err := decode(c, &spec); err != nil {
		return nil, "", err
	}
	res, ok := resources[spec.Resource]
	if !ok {
		return nil, "", vpserrors.NewValidationError(c.DisplayName()+".resource", fmt.Sprintf("unknown or disabled resource %q", spec.Resource), nil)
	}
	return func(ctx context.Context) (bool, string, error) {
		state, err := res.Probe(ctx)
		if err != nil {
			return false, "", err
		}
		if !state.Satisfied() {
			return false, fmt.Sprintf("%s is %s", spec.Resource, state), nil
		}
		return true, res.Desired(), nil
	}, res.Group(), nil
}
