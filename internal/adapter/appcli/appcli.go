// Package appcli passes commands through to the managed application's own CLI.
package appcli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
	"github.com/alexisbeaulieu97/vpsctl/internal/config"
)

// ErrNotConfigured is returned when no application binary is set.
var ErrNotConfigured = errors.New("application binary not configured")

// Client invokes the configured application binary. Exit status and output
// are the application's contract; the client only relays them.
type Client struct {
	runner execx.Runner
	app    config.Application
}

// NewClient returns a Client with default argument lists filled in.
func NewClient(runner execx.Runner, app config.Application) *Client {
	if len(app.VersionArgs) == 0 {
		app.VersionArgs = []string{"--version"}
	}
	if len(app.DoctorArgs) == 0 {
		app.DoctorArgs = []string{"doctor"}
	}
	if len(app.HealthArgs) == 0 {
		app.HealthArgs = []string{"health"}
	}
	if len(app.GatewayRestartArgs) == 0 {
		app.GatewayRestartArgs = []string{"gateway", "restart"}
	}
	return &Client{runner: runner, app: app}
}

// Configured reports whether a binary is set.
func (c *Client) Configured() bool {
	return c.app.Binary != ""
}

// Binary returns the configured binary name.
func (c *Client) Binary() string {
	return c.app.Binary
}

// Version returns the application's reported version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.run(ctx, c.app.VersionArgs)
}

// Doctor runs the application's self-diagnosis.
func (c *Client) Doctor(ctx context.Context) (string, error) {
	return c.run(ctx, c.app.DoctorArgs)
}

// Health returns a nil error when the application reports itself healthy.
func (c *Client) Health(ctx context.Context) (string, error) {
	return c.run(ctx, c.app.HealthArgs)
}

// GatewayRestart restarts the application's gateway process.
func (c *Client) GatewayRestart(ctx context.Context) (string, error) {
	return c.run(ctx, c.app.GatewayRestartArgs)
}

func (c *Client) run(ctx context.Context, args []string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	res, err := c.runner.Run(ctx, execx.Command{Name: c.app.Binary, Args: args, Env: c.env()})
	out := res.Stdout
	if out == "" {
		out = res.Stderr
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", c.app.Binary, err)
	}
	return out, nil
}

func (c *Client) env() []string {
	if len(c.app.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.app.Env))
	for k := range c.app.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+c.app.Env[k])
	}
	return env
}
