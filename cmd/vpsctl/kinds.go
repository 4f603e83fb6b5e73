package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/vpsctl/internal/check"
	"github.com/alexisbeaulieu97/vpsctl/internal/plugin"
)

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the resource kinds and check types this binary supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := [][]string{}
			for _, meta := range plugin.Default().List() {
				rows = append(rows, []string{meta.Name, meta.Version, meta.Description})
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("KIND", "VERSION", "DESCRIPTION").
				Rows(rows...)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.Render())
			fmt.Fprintf(out, "\nCheck types: %s\n", strings.Join(check.Types(), ", "))
			return nil
		},
	}
}
