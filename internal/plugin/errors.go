package plugin

import "fmt"

// ErrKindNotFound is returned when no kind is registered for a resource type.
type ErrKindNotFound struct {
	Name string
}

func (e ErrKindNotFound) Error() string {
	return fmt.Sprintf("resource type '%s' is not registered\nHint: check the spelling of `type:` or run `vpsctl kinds`", e.Name)
}

// ErrDuplicateKind is returned when two kinds claim the same name.
type ErrDuplicateKind struct {
	Name string
}

func (e ErrDuplicateKind) Error() string {
	return fmt.Sprintf("resource type '%s' is already registered", e.Name)
}

// BuildError wraps a failure to construct a resource from its config block.
type BuildError struct {
	ResourceID string
	Kind       string
	Err        error
}

// NewBuildError constructs a BuildError.
func NewBuildError(resourceID, kind string, err error) *BuildError {
	return &BuildError{ResourceID: resourceID, Kind: kind, Err: err}
}

func (e *BuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resource %s (%s): build failed", e.ResourceID, e.Kind)
	}
	return fmt.Sprintf("resource %s (%s): %v", e.ResourceID, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error {
	return e.Err
}
