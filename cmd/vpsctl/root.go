package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "vpsctl",
		Short:         "vpsctl converges a VPS to the state declared in its YAML document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the host document (default $VPSCTL_CONFIG or /etc/vpsctl/vpsctl.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newVerifyCmd(flags))
	cmd.AddCommand(newPlanCmd(flags))
	cmd.AddCommand(newGraphCmd(flags))
	cmd.AddCommand(newAppCmd(flags))
	cmd.AddCommand(newHistoryCmd(flags))
	cmd.AddCommand(newKindsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
