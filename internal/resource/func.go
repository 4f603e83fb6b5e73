package resource

import (
	"context"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
)

// Func adapts a pair of functions into a Resource.
type Func struct {
	Base
	ProbeFunc    func(ctx context.Context) (model.State, error)
	ConvergeFunc func(ctx context.Context, current model.State) error
}

var _ Resource = (*Func)(nil)

// Probe implements Resource.
func (f *Func) Probe(ctx context.Context) (model.State, error) {
	if f.ProbeFunc == nil {
		return model.StateUnknown, nil
	}
	return f.ProbeFunc(ctx)
}

// Converge implements Resource. A present state never reaches ConvergeFunc.
func (f *Func) Converge(ctx context.Context, current model.State) error {
	if current.Satisfied() || f.ConvergeFunc == nil {
		return nil
	}
	return f.ConvergeFunc(ctx, current)
}
