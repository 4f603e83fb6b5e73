// Package check runs read-only verification predicates against the host and
// collects their results into a model.Report.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/vpsctl/internal/logger"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Predicate inspects the host. It returns whether the check passed and a
// short detail for the report. An error means the predicate itself could not
// run and is recorded as a fault.
type Predicate func(ctx context.Context) (bool, string, error)

// Check is one registered predicate.
type Check struct {
	Name      string
	Group     string
	Predicate Predicate
}

// Filter selects which checks run.
type Filter func(Check) bool

// ByGroups selects checks in any of groups.
func ByGroups(groups ...string) Filter {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return func(c Check) bool {
		_, ok := set[c.Group]
		return ok
	}
}

// Registry holds checks in registration order.
type Registry struct {
	checks []Check
	log    *logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for per-check debug lines.
func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a check. An empty group means system.
func (r *Registry) Register(name, group string, predicate Predicate) error {
	if name == "" {
		return vpserrors.NewValidationError("check.name", "name is required", nil)
	}
	if predicate == nil {
		return vpserrors.NewValidationError("check."+name, "predicate is required", nil)
	}
	if group == "" {
		group = resource.GroupSystem
	}
	r.checks = append(r.checks, Check{Name: name, Group: group, Predicate: predicate})
	return nil
}

// Checks returns the registered checks in order.
func (r *Registry) Checks() []Check {
	return append([]Check(nil), r.checks...)
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	return len(r.checks)
}

// RunAll evaluates every check accepted by filter, in registration order,
// and always returns one result per selected check. A nil filter selects all.
func (r *Registry) RunAll(ctx context.Context, filter Filter) model.Report {
	start := time.Now()
	results := make([]model.CheckResult, 0, len(r.checks))
	for _, c := range r.checks {
		if filter != nil && !filter(c) {
			continue
		}
		result := r.runOne(ctx, c)
		log := r.log.ForCheck(c.Name)
		if result.Passed {
			log.Debug("check passed")
		} else {
			log.Debug("check failed: " + result.Detail)
		}
		results = append(results, result)
	}
	return model.NewReport(results, time.Since(start))
}

func (r *Registry) runOne(ctx context.Context, c Check) (result model.CheckResult) {
	result = model.CheckResult{Name: c.Name, Group: c.Group}

	defer func() {
		if rec := recover(); rec != nil {
			fault := vpserrors.NewPredicateFaultError(c.Name, fmt.Errorf("panic: %v", rec))
			result.Passed = false
			result.Detail = fault.Error()
			result.Error = fault
		}
	}()

	if err := ctx.Err(); err != nil {
		fault := vpserrors.NewPredicateFaultError(c.Name, err)
		result.Detail = fault.Error()
		result.Error = fault
		return result
	}

	passed, detail, err := c.Predicate(ctx)
	if err != nil {
		fault := vpserrors.NewPredicateFaultError(c.Name, err)
		result.Detail = fault.Error()
		result.Error = fault
		return result
	}
	result.Passed = passed
	result.Detail = detail
	return result
}
