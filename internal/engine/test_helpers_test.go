package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

// fakeHost is a shared in-memory "system" that fake resources mutate. It
// records the order of probe/converge calls across resources.
type fakeHost struct {
	mu        sync.Mutex
	state     map[string]model.State
	mutations map[string]int
	probes    map[string]int
	calls     []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		state:     make(map[string]model.State),
		mutations: make(map[string]int),
		probes:    make(map[string]int),
	}
}

func (h *fakeHost) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

type fakeResource struct {
	resource.Base
	host *fakeHost

	convergeErr error
	// ignoreConverge makes converge report success without changing state.
	ignoreConverge bool
	probeErr       error
}

func newFake(host *fakeHost, id string, deps ...string) *fakeResource {
	return &fakeResource{
		Base: resource.Base{Name: id, Deps: deps, Description: id + " present"},
		host: host,
	}
}

func (f *fakeResource) Probe(context.Context) (model.State, error) {
	f.host.record("probe:" + f.Name)
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	f.host.probes[f.Name]++
	if f.probeErr != nil {
		return model.StateUnknown, f.probeErr
	}
	state, ok := f.host.state[f.Name]
	if !ok {
		return model.StateAbsent, nil
	}
	return state, nil
}

func (f *fakeResource) Converge(_ context.Context, current model.State) error {
	f.host.record("converge:" + f.Name)
	if current.Satisfied() {
		return nil
	}
	if f.convergeErr != nil {
		return f.convergeErr
	}
	if f.ignoreConverge {
		return nil
	}
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	if f.host.state[f.Name] == model.StatePresent {
		return nil
	}
	f.host.mutations[f.Name]++
	f.host.state[f.Name] = model.StatePresent
	return nil
}

func (f *fakeResource) Plan(context.Context, model.State) (string, error) {
	return "+ " + f.Name, nil
}

func resources(rs ...*fakeResource) []resource.Resource {
	out := make([]resource.Resource, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

var errBoom = errors.New("boom")

type recordingObserver struct {
	started  []string
	finished []model.RunOutcome
}

func (o *recordingObserver) ResourceStarted(res resource.Resource) {
	o.started = append(o.started, res.ID())
}

func (o *recordingObserver) ResourceFinished(outcome model.RunOutcome) {
	o.finished = append(o.finished, outcome)
}
