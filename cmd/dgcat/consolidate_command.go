package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dgcat/internal/consolidate"
	"dgcat/internal/dedupe"
	"dgcat/internal/platform"
)

func newConsolidateCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "consolidate <root>",
		Short: "Move unique files into the content-addressed layout and symlink duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := resolveRoot(args[0])
			if err != nil {
				return err
			}

			store, release, err := ctx.openCatalog(root)
			if err != nil {
				return err
			}
			defer release()

			logger, err := ctx.newLogger(root)
			if err != nil {
				return err
			}

			// Masters whose physical copy vanished since the last run are
			// replaced before planning, so links never target a dead file.
			// A dry run must not write anything: re-election is skipped and
			// affected groups surface in the plan's skipped summary instead.
			if !dryRun {
				if _, err := dedupe.New(store, logger).ReelectMasters(cmd.Context()); err != nil {
					return err
				}
			}

			cons := consolidate.New(cfg, store, platform.New(), root, logger)
			plan, err := cons.Build(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(plan.Operations) == 0 {
				fmt.Fprintln(out, "Nothing to consolidate.")
				printFaults(out, &plan.Skipped)
				return nil
			}

			fmt.Fprintf(out, "Plan %s: %d moves (%s), %d links\n",
				plan.SessionID, plan.MoveCount, humanize.IBytes(uint64(plan.MoveBytes)), plan.LinkCount)

			if dryRun {
				fmt.Fprintln(out, renderPlanTable(plan))
				printFaults(out, &plan.Skipped)
				return nil
			}

			if err := cons.Preflight(plan); err != nil {
				return err
			}
			result, err := cons.Execute(cmd.Context(), plan)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Moved %d files, linked %d duplicates, skipped %d already-settled records\n",
				result.Moved, result.Linked, result.Skipped)
			printFaults(out, &result.Faults)
			printFaults(out, &plan.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without touching any files")
	return cmd
}

const planTableLimit = 100

func renderPlanTable(plan *consolidate.Plan) string {
	rows := make([][]string, 0, len(plan.Operations))
	for _, op := range plan.Operations {
		if len(rows) == planTableLimit {
			break
		}
		rows = append(rows, []string{
			string(op.Kind),
			displayPath(plan.Root, op.Source),
			displayPath(plan.Root, op.Destination),
			humanize.IBytes(uint64(op.SizeBytes)),
		})
	}
	rendered := renderTable([]string{"Op", "Source", "Destination", "Size"}, rows, 3)
	if remaining := len(plan.Operations) - planTableLimit; remaining > 0 {
		rendered += fmt.Sprintf("\n... and %d more operations", remaining)
	}
	return rendered
}

func displayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
