package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/vpsctl/internal/logger"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Observer receives progress callbacks while a run is in flight.
type Observer interface {
	ResourceStarted(res resource.Resource)
	ResourceFinished(outcome model.RunOutcome)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for per-resource diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(r *Reconciler) { r.observer = obs }
}

// WithDryRun makes the reconciler probe only, recording planned outcomes.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// Reconciler drives probe, converge and re-probe across a resource catalog.
// It is strictly sequential: resources mutate shared host state.
type Reconciler struct {
	graph    *Graph
	ordered  []resource.Resource
	log      *logger.Logger
	observer Observer
	dryRun   bool
	now      func() time.Time
}

// NewReconciler validates and sorts the catalog once. A dependency cycle
// returns a *errors.CyclicDependencyError before any resource is touched.
func NewReconciler(resources []resource.Resource, opts ...Option) (*Reconciler, error) {
	graph, err := BuildDAG(resources)
	if err != nil {
		return nil, err
	}

	r := &Reconciler{graph: graph, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Nop()
	}

	r.ordered = make([]resource.Resource, 0, len(graph.Order))
	for _, id := range graph.Order {
		r.ordered = append(r.ordered, graph.Nodes[id].Resource)
	}
	return r, nil
}

// Order returns resource ids in execution order.
func (r *Reconciler) Order() []string {
	return append([]string(nil), r.graph.Order...)
}

// Plan returns the level view of the catalog.
func (r *Reconciler) Plan() *ExecutionPlan {
	plan, _ := GeneratePlan(r.graph)
	return plan
}

// Reconcile runs every resource accepted by filter, in dependency order, and
// returns exactly one outcome per selected resource. Failures never stop
// independent resources; dependents of a failed resource are skipped.
func (r *Reconciler) Reconcile(ctx context.Context, filter ResourceFilter) []model.RunOutcome {
	if filter == nil {
		filter = All()
	}

	outcomes := make([]model.RunOutcome, 0, len(r.ordered))
	byID := make(map[string]model.RunOutcome, len(r.ordered))

	for _, res := range r.ordered {
		if !filter(res) {
			continue
		}

		if r.observer != nil {
			r.observer.ResourceStarted(res)
		}

		outcome := r.reconcileOne(ctx, res, byID)

		byID[res.ID()] = outcome
		outcomes = append(outcomes, outcome)

		if r.observer != nil {
			r.observer.ResourceFinished(outcome)
		}
	}

	return outcomes
}

func (r *Reconciler) reconcileOne(ctx context.Context, res resource.Resource, prior map[string]model.RunOutcome) model.RunOutcome {
	start := r.now()
	log := r.log.ForResource(res.ID(), res.Group())

	outcome := model.RunOutcome{
		ResourceID: res.ID(),
		Group:      res.Group(),
		Desired:    res.Desired(),
		Timestamp:  start,
	}
	finish := func() model.RunOutcome {
		outcome.Duration = r.now().Sub(start)
		return outcome
	}

	var blocked []string
	for _, dep := range res.DependsOn() {
		if o, ok := prior[dep]; ok && o.Failed() {
			blocked = append(blocked, dep)
		}
	}
	if len(blocked) > 0 {
		outcome.Status = model.OutcomeSkipped
		outcome.InitialState = model.StateUnknown
		outcome.FinalState = model.StateUnknown
		outcome.Message = "skipped: dependency failed: " + strings.Join(blocked, ", ")
		log.Warn(outcome.Message)
		return finish()
	}

	if err := ctx.Err(); err != nil {
		outcome.Status = model.OutcomeSkipped
		outcome.InitialState = model.StateUnknown
		outcome.FinalState = model.StateUnknown
		outcome.Message = "skipped: run cancelled"
		outcome.Error = err
		return finish()
	}

	initial, probeErr := r.probe(ctx, res)
	outcome.InitialState = initial
	outcome.FinalState = initial
	if probeErr != nil {
		log.Error(probeErr, "probe failed; treating state as unknown")
	}

	if initial.Satisfied() {
		outcome.Status = model.OutcomeUnchanged
		outcome.Message = "already in desired state"
		log.Debug(outcome.Message)
		return finish()
	}

	if r.dryRun {
		outcome.Status = model.OutcomePlanned
		outcome.Message = fmt.Sprintf("would converge from %s", initial)
		if planner, ok := res.(resource.Planner); ok {
			diff, err := planner.Plan(ctx, initial)
			if err != nil {
				log.Error(err, "plan failed")
			}
			outcome.Diff = diff
		}
		if probeErr != nil {
			outcome.Error = probeErr
		}
		return finish()
	}

	outcome.ActionTaken = true
	log.Info(fmt.Sprintf("converging from %s", initial))
	if err := r.converge(ctx, res, initial); err != nil {
		outcome.Status = model.OutcomeFailed
		outcome.Error = vpserrors.NewConvergeError(res.ID(), err)
		outcome.Message = err.Error()
		log.Error(err, "converge failed")
		return finish()
	}

	final, err := r.probe(ctx, res)
	outcome.FinalState = final
	if err != nil || !final.Satisfied() {
		outcome.Status = model.OutcomeFailed
		outcome.Error = vpserrors.NewVerificationMismatchError(res.ID(), string(final), err)
		outcome.Message = outcome.Error.Error()
		log.Error(outcome.Error, "post-converge verification failed")
		return finish()
	}

	outcome.Status = model.OutcomeConverged
	outcome.Message = "converged"
	log.Info("converged")
	return finish()
}

func (r *Reconciler) probe(ctx context.Context, res resource.Resource) (state model.State, err error) {
	defer func() {
		if p := recover(); p != nil {
			state = model.StateUnknown
			err = vpserrors.NewProbeError(res.ID(), fmt.Errorf("panic: %v", p))
		}
	}()

	state, err = res.Probe(ctx)
	if err != nil {
		return model.StateUnknown, vpserrors.NewProbeError(res.ID(), err)
	}
	if !state.IsValid() {
		return model.StateUnknown, vpserrors.NewProbeError(res.ID(), fmt.Errorf("invalid state %q", state))
	}
	return state, nil
}

func (r *Reconciler) converge(ctx context.Context, res resource.Resource, current model.State) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return res.Converge(ctx, current)
}
