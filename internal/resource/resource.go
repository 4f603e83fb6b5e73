// Package resource defines the probe/converge contract shared by every
// resource kind.
package resource

import (
	"context"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
)

// Group names used to scope a run.
const (
	GroupSystem      = "system"
	GroupApplication = "application"
	GroupSandbox     = "sandbox"
)

// Groups lists every known group in catalog order.
var Groups = []string{GroupSystem, GroupApplication, GroupSandbox}

// Resource is a named, idempotent unit of desired host state.
//
// Implementations hold no mutable state: everything they know about the host
// comes from Probe, so re-running always reflects the live system.
type Resource interface {
	// ID returns the unique key of the resource.
	ID() string
	// DependsOn lists resource ids that must converge first.
	DependsOn() []string
	// Group returns the run scope the resource belongs to.
	Group() string
	// Desired describes the target state for reports.
	Desired() string

	// Probe reads the current state. It must not mutate the host. An error
	// means a collaborator could not be read; callers treat it as unknown.
	Probe(ctx context.Context) (model.State, error)

	// Converge performs the minimal action that moves the host from current
	// to the desired state. It must be a no-op when current is present, and
	// treat unknown like absent.
	Converge(ctx context.Context, current model.State) error
}

// Planner is implemented by resources that can describe the change converge
// would make, for dry runs.
type Planner interface {
	Plan(ctx context.Context, current model.State) (string, error)
}

// Base carries the identity fields common to all kinds. Kinds embed it.
type Base struct {
	Name        string
	Deps        []string
	GroupName   string
	Description string
}

// ID implements Resource.
func (b Base) ID() string { return b.Name }

// DependsOn implements Resource.
func (b Base) DependsOn() []string { return append([]string(nil), b.Deps...) }

// Group implements Resource.
func (b Base) Group() string {
	if b.GroupName == "" {
		return GroupSystem
	}
	return b.GroupName
}

// Desired implements Resource.
func (b Base) Desired() string { return b.Description }
