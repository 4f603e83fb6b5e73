package swapplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/files"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

const (
	defaultPath  = "/swapfile"
	defaultFstab = "/etc/fstab"
)

// Spec is the `type: swap` block.
type Spec struct {
	Path  string `yaml:"path,omitempty"`
	Size  string `yaml:"size" validate:"required"`
	Fstab string `yaml:"fstab,omitempty"`
}

type swapKind struct{}

// New creates the swap kind.
func New() plugin.Kind {
	return &swapKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *swapKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "swap",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Allocates a swap file, activates it and persists it in fstab.",
	}
}

func (k *swapKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	size, err := humanize.ParseBytes(spec.Size)
	if err != nil || size == 0 {
		return nil, vpserrors.NewValidationError(res.ID+".size", fmt.Sprintf("invalid size %q", spec.Size), err)
	}
	if spec.Path == "" {
		spec.Path = defaultPath
	}
	if spec.Fstab == "" {
		spec.Fstab = defaultFstab
	}
	return &Resource{
		Base:   plugin.BaseFor(res, fmt.Sprintf("%s swap at %s", humanize.IBytes(size), spec.Path)),
		spec:   spec,
		size:   size,
		runner: env.Runner,
		store:  env.Files,
	}, nil
}

// Resource manages one swap file.
type Resource struct {
	resource.Base
	spec   Spec
	size   uint64
	runner execx.Runner
	store  *files.Store
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

type swapState struct {
	exists  bool
	sized   bool
	active  bool
	fstab   bool
	current uint64
	table   []byte
	// tableRead is false when fstab could not be read.
	tableRead bool
}

func (s swapState) complete() bool {
	return s.exists && s.sized && s.active && s.fstab
}

func (r *Resource) read(ctx context.Context) (swapState, error) {
	var st swapState

	table, _, err := r.store.Read(r.spec.Fstab)
	if err != nil {
		return st, err
	}
	st.table, st.tableRead = table, true
	st.fstab = hasFstabEntry(string(table), r.spec.Path)

	info, err := os.Stat(r.spec.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return st, fmt.Errorf("stat %s: %w", r.spec.Path, err)
	default:
		st.exists = true
		st.current = uint64(info.Size())
		st.sized = st.current == r.size
	}

	res, err := r.runner.Run(ctx, execx.Command{Name: "swapon", Args: []string{"--show=NAME", "--noheadings"}})
	if err != nil {
		return st, fmt.Errorf("swapon --show: %w", err)
	}
	st.active = slices.Contains(strings.Fields(res.Stdout), r.spec.Path)
	return st, nil
}

func hasFstabEntry(table, path string) bool {
	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && !strings.HasPrefix(fields[0], "#") && fields[0] == path && fields[2] == "swap" {
			return true
		}
	}
	return false
}

func (r *Resource) fstabLine() string {
	return r.spec.Path + " none swap sw 0 0"
}

// Probe reports present only when the file has the right size, is active and
// is listed in fstab.
func (r *Resource) Probe(ctx context.Context) (model.State, error) {
	st, err := r.read(ctx)
	if err != nil {
		return model.StateUnknown, err
	}
	switch {
	case st.complete():
		return model.StatePresent, nil
	case !st.exists && !st.active && !st.fstab:
		return model.StateAbsent, nil
	default:
		return model.StateMismatched, nil
	}
}

func (r *Resource) run(ctx context.Context, name string, args ...string) error {
	if _, err := r.runner.Run(ctx, execx.Command{Name: name, Args: args}); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Converge (re)allocates the file when missing or wrongly sized, activates it
// and appends the fstab entry. When the host cannot be read the full sequence
// runs; fstab is only rewritten from a successful read.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	st, err := r.read(ctx)
	if err != nil {
		st = swapState{table: st.table, tableRead: st.tableRead, fstab: st.fstab}
	}

	if !st.exists || !st.sized {
		if st.active {
			if err := r.run(ctx, "swapoff", r.spec.Path); err != nil {
				return err
			}
			st.active = false
		}
		steps := [][]string{
			{"fallocate", "-l", strconv.FormatUint(r.size, 10), r.spec.Path},
			{"chmod", "600", r.spec.Path},
			{"mkswap", r.spec.Path},
		}
		for _, step := range steps {
			if err := r.run(ctx, step[0], step[1:]...); err != nil {
				return err
			}
		}
	}
	if !st.active {
		if err := r.run(ctx, "swapon", r.spec.Path); err != nil {
			return err
		}
	}
	if !st.fstab {
		if !st.tableRead {
			return fmt.Errorf("%s could not be read, swap entry not added: %w", r.spec.Fstab, err)
		}
		table := string(st.table)
		if table != "" && !strings.HasSuffix(table, "\n") {
			table += "\n"
		}
		table += r.fstabLine() + "\n"
		if err := r.store.Write(r.spec.Fstab, files.Desired{Content: []byte(table)}); err != nil {
			return err
		}
	}
	return nil
}

// Plan lists the pending steps.
func (r *Resource) Plan(ctx context.Context, _ model.State) (string, error) {
	st, err := r.read(ctx)
	if err != nil {
		return "", err
	}
	var steps []string
	switch {
	case !st.exists:
		steps = append(steps, fmt.Sprintf("allocate %s at %s", humanize.IBytes(r.size), r.spec.Path))
	case !st.sized:
		steps = append(steps, fmt.Sprintf("resize %s from %s to %s", r.spec.Path, humanize.IBytes(st.current), humanize.IBytes(r.size)))
	}
	if !st.active || !st.sized {
		steps = append(steps, "swapon "+r.spec.Path)
	}
	if !st.fstab {
		steps = append(steps, fmt.Sprintf("append %q to %s", r.fstabLine(), r.spec.Fstab))
	}
	return "would " + strings.Join(steps, ", "), nil
}
