package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/appcli"
	"github.com/alexisbeaulieu97/vpsctl/internal/adapter/execx"
)

func newAppCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Pass through to the managed application's CLI",
	}

	cmd.AddCommand(newAppActionCmd(root, "version", "Print the application version", (*appcli.Client).Version))
	cmd.AddCommand(newAppActionCmd(root, "doctor", "Run the application's self-diagnosis", (*appcli.Client).Doctor))
	cmd.AddCommand(newAppActionCmd(root, "health", "Query the application's health", (*appcli.Client).Health))
	cmd.AddCommand(newAppActionCmd(root, "restart", "Restart the application gateway", (*appcli.Client).GatewayRestart))

	return cmd
}

func newAppActionCmd(root *rootFlags, use, short string, action func(*appcli.Client, context.Context) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			client := appcli.NewClient(newRunner(cfg), cfg.Application)

			out, err := action(client, cmd.Context())
			if s := strings.TrimSpace(out); s != "" {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			var exitErr *execx.ExitError
			if errors.As(err, &exitErr) {
				return &exitError{code: exitErr.Code}
			}
			return err
		},
	}
}
