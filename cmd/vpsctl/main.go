package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
	"github.com/alexisbeaulieu97/vpsctl/internal/report"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Fatal errors exit above the failure-count range so callers can tell a
// broken invocation from a degraded host.
const (
	exitFatal  = report.MaxExitCode + 1
	exitConfig = report.MaxExitCode + 2
)

// exitError carries a non-zero status that has already been reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	root := newRootCmd()
	os.Exit(exitCode(root.Execute(), os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	if isConfigError(err) {
		return exitConfig
	}
	return exitFatal
}

func isConfigError(err error) bool {
	var (
		parseErr *vpserrors.ParseError
		valErr   *vpserrors.ValidationError
		cycleErr *vpserrors.CyclicDependencyError
		buildErr *plugin.BuildError
	)
	return errors.As(err, &parseErr) ||
		errors.As(err, &valErr) ||
		errors.As(err, &cycleErr) ||
		errors.As(err, &buildErr)
}
