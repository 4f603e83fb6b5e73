package lineplugin

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/files"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/services"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Spec is the `type: line` block.
type Spec struct {
	Path       string `yaml:"path" validate:"required"`
	Rules      []Rule `yaml:"rules" validate:"required,min=1,dive"`
	OnMultiple string `yaml:"on_multiple,omitempty" validate:"omitempty,oneof=first all error"`
	Create     bool   `yaml:"create,omitempty"`
	Mode       string `yaml:"mode,omitempty" validate:"omitempty,filemode"`
	Encoding   string `yaml:"encoding,omitempty"`
	Notify     string `yaml:"notify,omitempty"`
}

type lineKind struct{}

// New creates the line kind.
func New() plugin.Kind {
	return &lineKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *lineKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "line",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Patches individual lines of an existing file in place.",
	}
}

func (k *lineKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	for i := range spec.Rules {
		if err := spec.Rules[i].compile(); err != nil {
			return nil, vpserrors.NewValidationError(fmt.Sprintf("%s.rules[%d]", res.ID, i), err.Error(), err)
		}
	}
	if spec.OnMultiple == "" {
		spec.OnMultiple = onMultipleAll
	}
	spec.Encoding = strings.ToLower(strings.TrimSpace(spec.Encoding))
	if !isSupportedEncoding(spec.Encoding) {
		return nil, vpserrors.NewValidationError(res.ID+".encoding", "unsupported encoding: "+spec.Encoding, nil)
	}

	var mode fs.FileMode
	if spec.Mode != "" {
		v, err := strconv.ParseUint(spec.Mode, 8, 32)
		if err != nil {
			return nil, vpserrors.NewValidationError(res.ID+".mode", err.Error(), err)
		}
		mode = fs.FileMode(v)
	}

	return &Resource{
		Base:     plugin.BaseFor(res, fmt.Sprintf("%d line rule(s) in %s", len(spec.Rules), spec.Path)),
		spec:     spec,
		mode:     mode,
		store:    env.Files,
		services: env.Services,
	}, nil
}

// Resource patches one file.
type Resource struct {
	resource.Base
	spec     Spec
	mode     fs.FileMode
	store    *files.Store
	services *services.Manager
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

type snapshot struct {
	exists   bool
	current  []string
	desired  []string
	trailing bool
	modeOK   bool
}

func (s snapshot) linesOK() bool {
	return slices.Equal(s.current, s.desired)
}

func (r *Resource) read() (snapshot, error) {
	data, ok, err := r.store.Read(r.spec.Path)
	if err != nil {
		return snapshot{}, err
	}
	return r.snapshotOf(data, ok)
}

func (r *Resource) snapshotOf(data []byte, ok bool) (snapshot, error) {
	var err error
	snap := snapshot{exists: ok, trailing: true, modeOK: true}
	if ok {
		text, err := decodeContent(data, r.spec.Encoding)
		if err != nil {
			return snapshot{}, fmt.Errorf("decode %s as %s: %w", r.spec.Path, r.spec.Encoding, err)
		}
		snap.current, snap.trailing = splitLines(text)
		if len(snap.current) == 0 {
			snap.trailing = true
		}
		if r.mode != 0 {
			m, err := r.store.Matches(r.spec.Path, files.Desired{Content: data, Mode: r.mode})
			if err != nil {
				return snapshot{}, err
			}
			snap.modeOK = m.Mode
		}
	}
	snap.desired, err = applyRules(snap.current, r.spec.Rules, r.spec.OnMultiple)
	if err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// Probe reports present when applying every rule leaves the file unchanged.
func (r *Resource) Probe(_ context.Context) (model.State, error) {
	snap, err := r.read()
	if err != nil {
		return model.StateUnknown, err
	}
	switch {
	case !snap.exists:
		return model.StateAbsent, nil
	case snap.linesOK() && snap.modeOK:
		return model.StatePresent, nil
	default:
		return model.StateMismatched, nil
	}
}

// Converge rewrites the file with the patched lines and restarts the notify
// unit when set.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	data, ok, err := r.store.Read(r.spec.Path)
	if err != nil {
		if !r.spec.Create {
			return err
		}
		// Unreadable is handled like absent: rebuild from the rules.
		data, ok = nil, false
	}
	snap, err := r.snapshotOf(data, ok)
	if err != nil {
		return err
	}
	if !snap.exists && !r.spec.Create {
		return fmt.Errorf("%s does not exist and create is false", r.spec.Path)
	}
	if snap.exists && snap.linesOK() && snap.modeOK {
		return nil
	}

	content, err := encodeContent(joinLines(snap.desired, snap.trailing), r.spec.Encoding)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.spec.Path, err)
	}
	if err := r.store.Write(r.spec.Path, files.Desired{Content: content, Mode: r.mode}); err != nil {
		return err
	}
	if r.spec.Notify != "" {
		if err := r.services.Restart(ctx, r.spec.Notify); err != nil {
			return fmt.Errorf("notify %s: %w", r.spec.Notify, err)
		}
	}
	return nil
}

// Plan returns the unified diff of the patch.
func (r *Resource) Plan(_ context.Context, _ model.State) (string, error) {
	snap, err := r.read()
	if err != nil {
		return "", err
	}
	if !snap.exists && !r.spec.Create {
		return "", fmt.Errorf("%s does not exist and create is false", r.spec.Path)
	}
	var parts []string
	if !snap.linesOK() {
		parts = append(parts, lineDiff(r.spec.Path, snap.current, snap.desired))
	}
	if !snap.modeOK {
		parts = append(parts, fmt.Sprintf("would chmod %04o %s", r.mode.Perm(), r.spec.Path))
	}
	if r.spec.Notify != "" {
		parts = append(parts, "would restart "+r.spec.Notify)
	}
	return strings.Join(parts, "\n"), nil
}
