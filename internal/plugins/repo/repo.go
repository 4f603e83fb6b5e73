package repoplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/alexisbeaulieu97/vpsctl/internal/config"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

const remoteName = "origin"

// Spec is the `type: repo` block.
type Spec struct {
	URL    string `yaml:"url" validate:"required,git_url"`
	Path   string `yaml:"path" validate:"required"`
	Branch string `yaml:"branch,omitempty"`
	Depth  int    `yaml:"depth,omitempty" validate:"omitempty,min=0"`
}

type repoKind struct{}

// New creates the repo kind.
func New() plugin.Kind {
	return &repoKind{}
}

func init() {
	if err := plugin.RegisterKind(New()); err != nil {
		panic(err)
	}
}

func (k *repoKind) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "repo",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Keeps a git checkout with the expected origin and branch.",
	}
}

func (k *repoKind) Build(res config.Resource, env *plugin.Env) (resource.Resource, error) {
	var spec Spec
	if err := plugin.Decode(res, &spec); err != nil {
		return nil, err
	}
	desired := fmt.Sprintf("checkout of %s at %s", spec.URL, spec.Path)
	if spec.Branch != "" {
		desired += " on " + spec.Branch
	}
	return &Resource{Base: plugin.BaseFor(res, desired), spec: spec}, nil
}

// Resource manages one git checkout.
type Resource struct {
	resource.Base
	spec Spec
}

var (
	_ resource.Resource = (*Resource)(nil)
	_ resource.Planner  = (*Resource)(nil)
)

type checkout struct {
	dirExists bool
	isRepo    bool
	origin    string
	branch    string
}

func (c checkout) originOK(want string) bool {
	return c.origin == want
}

func (c checkout) branchOK(want string) bool {
	return want == "" || c.branch == want
}

func (r *Resource) inspect() (checkout, error) {
	var c checkout
	if _, err := os.Stat(r.spec.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return c, fmt.Errorf("stat %s: %w", r.spec.Path, err)
	}
	c.dirExists = true

	repo, err := git.PlainOpen(r.spec.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("open %s: %w", r.spec.Path, err)
	}
	c.isRepo = true

	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		c.branch = head.Name().Short()
	}
	if remote, err := repo.Remote(remoteName); err == nil && len(remote.Config().URLs) > 0 {
		c.origin = remote.Config().URLs[0]
	}
	return c, nil
}

// Probe opens the checkout with go-git.
func (r *Resource) Probe(_ context.Context) (model.State, error) {
	c, err := r.inspect()
	if err != nil {
		return model.StateUnknown, err
	}
	switch {
	case !c.dirExists:
		return model.StateAbsent, nil
	case c.isRepo && c.originOK(r.spec.URL) && c.branchOK(r.spec.Branch):
		return model.StatePresent, nil
	default:
		return model.StateMismatched, nil
	}
}

// Converge clones a missing checkout, or re-points origin and switches
// branch on an existing one. A non-empty directory that is not a repository
// is left alone.
func (r *Resource) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() {
		return nil
	}
	c, err := r.inspect()
	if err != nil {
		// Unreadable checkouts are handled like missing ones; the
		// non-empty directory guard still applies.
		c = checkout{dirExists: c.dirExists}
	}

	if !c.isRepo {
		if c.dirExists {
			entries, err := os.ReadDir(r.spec.Path)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				return fmt.Errorf("%s exists and is not a git repository", r.spec.Path)
			}
		}
		return r.clone(ctx)
	}

	repo, err := git.PlainOpen(r.spec.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.spec.Path, err)
	}
	if !c.originOK(r.spec.URL) {
		if err := repointOrigin(repo, r.spec.URL); err != nil {
			return err
		}
	}
	if !c.branchOK(r.spec.Branch) {
		return r.switchBranch(ctx, repo)
	}
	return nil
}

func (r *Resource) clone(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(r.spec.Path), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", r.spec.Path, err)
	}
	opts := &git.CloneOptions{URL: r.spec.URL, RemoteName: remoteName, Depth: r.spec.Depth}
	if r.spec.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(r.spec.Branch)
		opts.SingleBranch = true
	}
	if _, err := git.PlainCloneContext(ctx, r.spec.Path, false, opts); err != nil {
		return fmt.Errorf("clone %s: %w", r.spec.URL, err)
	}
	return nil
}

func repointOrigin(repo *git.Repository, url string) error {
	if err := repo.DeleteRemote(remoteName); err != nil && !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("remove origin: %w", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{url}}); err != nil {
		return fmt.Errorf("set origin to %s: %w", url, err)
	}
	return nil
}

func (r *Resource) switchBranch(ctx context.Context, repo *git.Repository) error {
	local := plumbing.NewBranchReferenceName(r.spec.Branch)
	remote := plumbing.NewRemoteReferenceName(remoteName, r.spec.Branch)

	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if _, err := repo.Reference(local, false); err == nil {
		return wt.Checkout(&git.CheckoutOptions{Branch: local})
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+%s:%s", local, remote))
	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName, RefSpecs: []gitconfig.RefSpec{refSpec}, Depth: r.spec.Depth})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", r.spec.Branch, err)
	}
	ref, err := repo.Reference(remote, true)
	if err != nil {
		return fmt.Errorf("branch %s not found on %s: %w", r.spec.Branch, remoteName, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: local, Hash: ref.Hash(), Create: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", r.spec.Branch, err)
	}
	return nil
}

// Plan names the git operations that would run.
func (r *Resource) Plan(_ context.Context, _ model.State) (string, error) {
	c, err := r.inspect()
	if err != nil {
		return "", err
	}
	switch {
	case !c.dirExists:
		return "would clone " + r.spec.URL + " into " + r.spec.Path, nil
	case !c.isRepo:
		return fmt.Sprintf("would clone %s into %s (directory must be empty)", r.spec.URL, r.spec.Path), nil
	}
	var plan string
	if !c.originOK(r.spec.URL) {
		plan = fmt.Sprintf("would set origin %s -> %s", c.origin, r.spec.URL)
	}
	if !c.branchOK(r.spec.Branch) {
		if plan != "" {
			plan += "\n"
		}
		plan += fmt.Sprintf("would checkout %s (currently %s)", r.spec.Branch, c.branch)
	}
	return plan, nil
}
