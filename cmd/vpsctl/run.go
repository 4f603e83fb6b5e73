package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/vpsctl/internal/audit"
	"github.com/alexisbeaulieu97/vpsctl/internal/check"
	"github.com/alexisbeaulieu97/vpsctl/internal/engine"
	"github.com/alexisbeaulieu97/vpsctl/internal/logger"
	"github.com/alexisbeaulieu97/vpsctl/internal/model"
	"github.com/alexisbeaulieu97/vpsctl/internal/report"
	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	"github.com/alexisbeaulieu97/vpsctl/internal/tui"
)

type runOptions struct {
	Modes  []string
	Only   []string
	DryRun bool
	Yes    bool
	JSON   bool
}

var (
	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

	confirm = func(title string) (bool, error) {
		ok := false
		err := huh.NewConfirm().
			Title(title).
			Affirmative("Apply").
			Negative("Cancel").
			Value(&ok).
			Run()
		return ok, err
	}
)

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile the host and verify it",
		Long: `Run reconciles every resource in the selected modes in dependency order,
then evaluates the checks of the same groups. The exit code is the number of
failed resources plus failed checks, capped at 100. Configuration errors exit
with 102 and other fatal errors with 101.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, root, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Modes, "mode", "m", nil, "Modes to run: full, system, application, sandbox, verify (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Restrict the run to these resource ids")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Probe and show planned changes without touching the host")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")

	return cmd
}

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{Modes: []string{modeVerify}}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Evaluate every check without reconciling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")

	return cmd
}

func newPlanCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{DryRun: true}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what run would change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, root, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Modes, "mode", "m", nil, "Modes to plan (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Restrict the plan to these resource ids")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")

	return cmd
}

// progressSink receives run progress, either for the TUI or the log.
type progressSink interface {
	engine.Observer
	CheckFinished(result model.CheckResult)
	Done()
}

func executeRun(cmd *cobra.Command, root *rootFlags, opts runOptions) error {
	modes, err := parseModes(opts.Modes)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	interactive := !opts.JSON && stdoutIsTerminal()

	app, err := loadApp(root, cmd.ErrOrStderr(), !opts.JSON, interactive)
	if err != nil {
		return err
	}

	graph, err := engine.BuildDAG(app.resources)
	if err != nil {
		return err
	}
	checks, err := check.FromConfig(app.cfg, app.env, app.resources, check.WithLogger(app.log))
	if err != nil {
		return err
	}

	groups := modes.Groups()
	filter := engine.ByGroups(groups...)
	if len(opts.Only) > 0 {
		filter = engine.And(filter, engine.ByIDs(opts.Only...))
	}

	var selected []string
	if modes.Reconcile() {
		selected = selectedIDs(graph.Order, app.resources, filter)
	}

	if len(selected) > 0 && !opts.DryRun && !opts.Yes && interactive {
		ok, err := confirm(fmt.Sprintf("Apply %d resources to %s?", len(selected), app.cfg.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted, nothing changed.")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sink   progressSink = newLogSink(app.log)
		uiDone chan error
	)
	if interactive {
		program := tea.NewProgram(tui.NewModel(tui.Options{
			Title:  app.cfg.Name,
			IDs:    selected,
			DryRun: opts.DryRun,
			Cancel: cancel,
		}), tea.WithOutput(out))
		sink = tui.NewObserver(program.Send)
		uiDone = make(chan error, 1)
		go func() {
			_, err := program.Run()
			uiDone <- err
		}()
	}

	start := time.Now()
	var outcomes []model.RunOutcome
	if modes.Reconcile() {
		rec, err := engine.NewReconciler(app.resources,
			engine.WithLogger(app.log),
			engine.WithDryRun(opts.DryRun),
			engine.WithObserver(sink),
		)
		if err != nil {
			sink.Done()
			return err
		}
		outcomes = rec.Reconcile(ctx, filter)
	}

	checkReport := checks.RunAll(ctx, check.ByGroups(groups...))
	for _, r := range checkReport.Results() {
		sink.CheckFinished(r)
	}
	sink.Done()

	if uiDone != nil {
		if err := <-uiDone; err != nil {
			app.log.Warn("progress display failed: " + err.Error())
		}
	}

	run := report.Run{
		Host:     app.cfg.Name,
		Modes:    modes.Names(),
		DryRun:   opts.DryRun,
		Outcomes: outcomes,
		Checks:   checkReport,
		Duration: time.Since(start),
	}

	if !opts.DryRun {
		recordAudit(app.cfg.Settings.AuditLog, app.log, outcomes, checkReport.Results())
	}

	if err := writeRun(out, run, opts.JSON, interactive); err != nil {
		return err
	}

	if code := run.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func writeRun(out io.Writer, run report.Run, asJSON, interactive bool) error {
	switch {
	case asJSON:
		return report.WriteJSON(out, run)
	case interactive && !run.DryRun:
		// The progress display already showed every outcome.
		return nil
	default:
		return report.WriteText(out, run)
	}
}

// selectedIDs lists, in run order, the resources accepted by filter.
func selectedIDs(order []string, resources []resource.Resource, filter engine.ResourceFilter) []string {
	byID := make(map[string]resource.Resource, len(resources))
	for _, r := range resources {
		byID[r.ID()] = r
	}
	ids := make([]string, 0, len(order))
	for _, id := range order {
		if r, ok := byID[id]; ok && filter(r) {
			ids = append(ids, id)
		}
	}
	return ids
}

func recordAudit(path string, log *logger.Logger, outcomes []model.RunOutcome, results []model.CheckResult) {
	runID := time.Now().UTC().Format("20060102T150405Z")
	entries := make([]audit.Entry, 0, len(outcomes)+len(results))
	for _, o := range outcomes {
		entries = append(entries, audit.FromOutcome(runID, o))
	}
	for _, r := range results {
		entries = append(entries, audit.FromCheck(runID, r))
	}

	auditLog := audit.New(path)
	if err := auditLog.Append(entries...); err != nil {
		log.With("audit_log", auditLog.Path()).Warn("audit log not written: " + err.Error())
	}
}

// logSink reports progress through the structured logger when no TUI runs.
type logSink struct {
	log *logger.Logger
}

func newLogSink(log *logger.Logger) *logSink {
	return &logSink{log: log}
}

func (s *logSink) ResourceStarted(res resource.Resource) {
	s.log.ForResource(res.ID(), res.Group()).Debug("reconciling")
}

func (s *logSink) ResourceFinished(o model.RunOutcome) {
	s.log.ForResource(o.ResourceID, o.Group).WithFields(map[string]any{
		"status":   string(o.Status),
		"duration": o.Duration.String(),
	}).Debug("finished")
}

func (s *logSink) CheckFinished(r model.CheckResult) {
	log := s.log.ForCheck(r.Name)
	if r.Passed {
		log.Debug("check passed")
		return
	}
	log.Warn("check failed: " + r.Detail)
}

func (s *logSink) Done() {}
