// Package execxtest provides a scripted execx.Runner for adapter and plugin tests.
package execxtest

import (
	"context"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
)

// Response is one scripted reply.
type Response struct {
	Result execx.Result
	Err    error
}

// Runner matches commands by their full command line. Queued responses are
// consumed in order and the last one repeats. Unmatched commands succeed
// with empty output unless Handler is set.
type Runner struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []string

	// Handler, when set, answers commands that have no scripted response.
	Handler func(cmd execx.Command) (execx.Result, error)
}

// New returns an empty fake runner.
func New() *Runner {
	return &Runner{responses: make(map[string][]Response)}
}

// On queues a reply for the exact command line.
func (r *Runner) On(line string, res execx.Result, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = append(r.responses[line], Response{Result: res, Err: err})
	return r
}

// OnStdout queues a successful reply with the given stdout.
func (r *Runner) OnStdout(line, stdout string) *Runner {
	return r.On(line, execx.Result{Stdout: stdout}, nil)
}

// OnExit queues a non-zero exit for the command line.
func (r *Runner) OnExit(line string, code int) *Runner {
	return r.On(line, execx.Result{ExitCode: code}, &execx.ExitError{Command: line, Code: code})
}

// Run implements execx.Runner.
func (r *Runner) Run(_ context.Context, cmd execx.Command) (execx.Result, error) {
	line := cmd.String()

	r.mu.Lock()
	r.calls = append(r.calls, line)
	queue := r.responses[line]
	if len(queue) > 0 {
		resp := queue[0]
		if len(queue) > 1 {
			r.responses[line] = queue[1:]
		}
		r.mu.Unlock()
		return resp.Result, resp.Err
	}
	handler := r.Handler
	r.mu.Unlock()

	if handler != nil {
		return handler(cmd)
	}
	return execx.Result{}, nil
}

// Calls returns every command line run so far.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how many calls started with prefix.
func (r *Runner) Count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
