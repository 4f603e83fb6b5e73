package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/vpsctl/internal/engine"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
)

func newGraphCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the dependency levels of the resource catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(root, cmd.ErrOrStderr(), true, false)
			if err != nil {
				return err
			}
			rec, err := engine.NewReconciler(app.resources, engine.WithLogger(app.log))
			if err != nil {
				return err
			}
			return writeGraph(cmd.OutOrStdout(), rec, app.resources)
		},
	}
}

func writeGraph(w io.Writer, rec *engine.Reconciler, resources []resource.Resource) error {
	if _, err := io.WriteString(w, rec.Plan().String()); err != nil {
		return err
	}

	byID := make(map[string]resource.Resource, len(resources))
	for _, r := range resources {
		byID[r.ID()] = r
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, id := range rec.Order() {
		r := byID[id]
		fmt.Fprintf(&b, "%s [%s] %s", id, r.Group(), r.Desired())
		if deps := r.DependsOn(); len(deps) > 0 {
			fmt.Fprintf(&b, " (after %s)", strings.Join(deps, ", "))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
