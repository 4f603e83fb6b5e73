package errors

import (
	"fmt"
	"strings"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProbeError reports that a collaborator could not be read while probing a resource.
type ProbeError struct {
	ResourceID string
	Err        error
}

// NewProbeError constructs a ProbeError.
func NewProbeError(resourceID string, err error) error {
	return &ProbeError{ResourceID: resourceID, Err: err}
}

func (e *ProbeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("probe error on resource %s: %v", e.ResourceID, e.Err)
}

// Unwrap exposes the root error.
func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConvergeError reports a mutation that was attempted and rejected or failed.
type ConvergeError struct {
	ResourceID string
	Err        error
}

// NewConvergeError constructs a ConvergeError.
func NewConvergeError(resourceID string, err error) error {
	return &ConvergeError{ResourceID: resourceID, Err: err}
}

func (e *ConvergeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("converge error on resource %s: %v", e.ResourceID, e.Err)
}

// Unwrap exposes the root error.
func (e *ConvergeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// VerificationMismatchError is recorded when converge claimed success but the
// follow-up probe still disagrees with the desired state.
type VerificationMismatchError struct {
	ResourceID string
	Observed   string
	Err        error
}

// NewVerificationMismatchError constructs a VerificationMismatchError. err is the
// probe failure, if the re-probe itself could not complete.
func NewVerificationMismatchError(resourceID, observed string, err error) error {
	return &VerificationMismatchError{ResourceID: resourceID, Observed: observed, Err: err}
}

func (e *VerificationMismatchError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("resource %s: converge reported success but state verification failed (observed %s)", e.ResourceID, e.Observed)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the probe error, if any.
func (e *VerificationMismatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CyclicDependencyError is returned at construction time when resource
// dependencies do not form a DAG.
type CyclicDependencyError struct {
	Cycle []string
}

// NewCyclicDependencyError constructs a CyclicDependencyError for the given path.
func NewCyclicDependencyError(cycle []string) error {
	return &CyclicDependencyError{Cycle: append([]string(nil), cycle...)}
}

func (e *CyclicDependencyError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Cycle) == 0 {
		return "cyclic dependency detected"
	}
	return fmt.Sprintf("cyclic dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// PredicateFaultError wraps an error or panic raised by a check predicate.
type PredicateFaultError struct {
	Check string
	Err   error
}

// NewPredicateFaultError constructs a PredicateFaultError.
func NewPredicateFaultError(check string, err error) error {
	return &PredicateFaultError{Check: check, Err: err}
}

func (e *PredicateFaultError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("check %q faulted: %v", e.Check, e.Err)
}

// Unwrap exposes the underlying fault.
func (e *PredicateFaultError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
