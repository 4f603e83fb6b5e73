package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/vpsctl/internal/audit"
)

type historyOptions struct {
	Resource string
	Limit    int
	Path     string
}

func newHistoryCmd(root *rootFlags) *cobra.Command {
	opts := historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded outcomes from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Path
			if path == "" {
				if _, cfg, err := loadConfig(root); err == nil {
					path = cfg.Settings.AuditLog
				}
			}
			entries, err := audit.New(path).Read(opts.Resource, opts.Limit)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVarP(&opts.Resource, "resource", "r", "", "Only show entries for this resource or check")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "Show at most this many recent entries (0 for all)")
	cmd.Flags().StringVar(&opts.Path, "log", "", "Audit log to read (default settings.audit_log)")

	return cmd
}

func writeHistory(w io.Writer, entries []audit.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No history recorded.")
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Time.Local().Format("2006-01-02 15:04:05"),
			e.Kind,
			e.Name,
			e.Outcome,
			e.Error,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "KIND", "NAME", "OUTCOME", "ERROR").
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
