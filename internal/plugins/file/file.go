package fileplugin

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/files"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/services"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	"github.com/alexisbeaulieu97/vpsctl/internal/secrets"
	"github.com/alexisbeaulieu97/vpsctl/pkg/diff"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Spec is the `type: file` block. Exactly one content source must be set.
type Spec struct {
	Path       string         `yaml:"path" validate:"required"`
	Content    *string        `yaml:"content,omitempty"`
	Source     string         `yaml:"source,omitempty"`
	Template   string         `yaml:"template,omitempty"`
	Vars       map[string]any `yaml:"vars,omitempty"`
	ContentAge string         `yaml:"content_age,omitempty"`
	Mode       string         `yaml:"mode,omitempty" validate:"omitempty,filemode"`
	Owner      string         `yaml:"owner,omitempty"`
	Group      string         `yaml:"owner_group,omitempty"`
	Notify     string         `yaml:"notify,omitempty"`
}

func (s Spec) sources() []string {
	var set []string
	if s.Content != nil {
		set = append(set, "content")
	}
	if s.Source != "" {
		set = append(set, "source")
	}
	if s.Template != "" {
		set = append(set, "template")
	}
	if s.ContentAge != "" {
		set = append(set, "content_age")
	}
	return set
}

type fileKind struct{}

// New creates the file kind.
func New() plugin.Kind {
	return &fileKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *fileKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "file",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages a whole file from inline content, a local source, a template or an age secret.",
	}
}

func (k *fileKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}

	switch set := spec.sources(); len(set) {
	case 0:
		return nil, vpserrors.NewValidationError(res.ID+".content", "one of content, source, template or content_age is required", nil)
	case 1:
	default:
		return nil, vpserrors.NewValidationError(res.ID+".content", "only one content source allowed, got "+strings.Join(set, ", "), nil)
	}

	mode, err := parseMode(spec.Mode)
	if err != nil {
		return nil, vpserrors.NewValidationError(res.ID+".mode", err.Error(), err)
	}
	if len(spec.Vars) > 0 && spec.Template == "" {
		return nil, vpserrors.NewValidationError(res.ID+".vars", "vars require template", nil)
	}

	spec.Source = resolve(env.BaseDir, spec.Source)
	spec.Template = resolve(env.BaseDir, spec.Template)

	return &Resource{
		Base:     plugin.BaseFor(res, "file "+spec.Path),
		spec:     spec,
		mode:     mode,
		store:    env.Files,
		services: env.Services,
		secrets:  env.Secrets,
	}, nil
}

func parseMode(raw string) (fs.FileMode, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q", raw)
	}
	return fs.FileMode(v), nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// Resource owns one file.
type Resource struct {
	resource.Base
	spec     Spec
	mode     fs.FileMode
	store    *files.Store
	services *services.Manager
	secrets  *secrets.Decrypter
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

// desired computes the target content. It is evaluated on every probe so
// edits to a source or template are picked up.
func (r *Resource) desired() (files.Desired, error) {
	want := files.Desired{Mode: r.mode, Owner: r.spec.Owner, Group: r.spec.Group}

	switch {
	case r.spec.Content != nil:
		want.Content = []byte(*r.spec.Content)
	case r.spec.Source != "":
		data, err := os.ReadFile(r.spec.Source)
		if err != nil {
			return want, fmt.Errorf("read source: %w", err)
		}
		want.Content = data
	case r.spec.Template != "":
		data, err := render(r.spec.Template, r.spec.Vars)
		if err != nil {
			return want, err
		}
		want.Content = data
	case r.spec.ContentAge != "":
		data, err := r.secrets.Decrypt([]byte(r.spec.ContentAge))
		if err != nil {
			return want, err
		}
		want.Content = data
	}
	return want, nil
}

func render(path string, vars map[string]any) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", path, err)
	}
	tmpl, err := template.New(filepath.Base(path)).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", path, err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, vars); err != nil {
		return nil, fmt.Errorf("render template %q: %w", path, err)
	}
	return out.Bytes(), nil
}

func (r *Resource) match() (files.Desired, files.Match, error) {
	want, err := r.desired()
	if err != nil {
		return want, files.Match{}, err
	}
	m, err := r.store.Matches(r.spec.Path, want)
	return want, m, err
}

// Probe compares the file on disk with the desired content and metadata.
func (r *Resource) Probe(_ context.Context) (model.State, error) {
	_, m, err := r.match()
	if err != nil {
		return model.StateUnknown, err
	}
	switch {
	case !m.Exists:
		return model.StateAbsent, nil
	case m.Satisfied():
		return model.StatePresent, nil
	default:
		return model.StateMismatched, nil
	}
}

// Converge writes the file and restarts the notify unit when set.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	want, err := r.desired()
	if err != nil {
		return err
	}
	if err := r.store.Write(r.spec.Path, want); err != nil {
		return err
	}
	if r.spec.Notify != "" {
		if err := r.services.Restart(ctx, r.spec.Notify); err != nil {
			return fmt.Errorf("notify %s: %w", r.spec.Notify, err)
		}
	}
	return nil
}

// Plan describes the write. Decrypted content is never shown.
func (r *Resource) Plan(_ context.Context, _ model.State) (string, error) {
	want, m, err := r.match()
	if err != nil {
		return "", err
	}
	if !m.Exists {
		return fmt.Sprintf("would create %s (%s)", r.spec.Path, humanize.Bytes(uint64(len(want.Content)))), nil
	}

	var parts []string
	if !m.Content {
		if r.spec.ContentAge != "" {
			added, removed := diff.Stat(m.Current, want.Content)
			parts = append(parts, fmt.Sprintf("would replace secret content of %s (+%d -%d lines)", r.spec.Path, added, removed))
		} else {
			parts = append(parts, strings.TrimRight(diff.GenerateUnifiedDiff(m.Current, want.Content, r.spec.Path+" (current)", r.spec.Path+" (desired)"), "\n"))
		}
	}
	if !m.Mode {
		parts = append(parts, fmt.Sprintf("would chmod %04o %s", r.mode.Perm(), r.spec.Path))
	}
	if !m.Owner {
		parts = append(parts, fmt.Sprintf("would chown %s:%s %s", r.spec.Owner, r.spec.Group, r.spec.Path))
	}
	if r.spec.Notify != "" {
		parts = append(parts, "would restart "+r.spec.Notify)
	}
	return strings.Join(parts, "\n"), nil
}
