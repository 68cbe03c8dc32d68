package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <root>",
		Short: "Show catalog statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(args[0])
			if err != nil {
				return err
			}

			store, release, err := ctx.openCatalog(root)
			if err != nil {
				return err
			}
			defer release()

			snap, err := store.Statistics(cmd.Context())
			if err != nil {
				return err
			}

			printer := message.NewPrinter(language.English)
			rows := [][]string{
				{"Total files", printer.Sprintf("%d", snap.TotalFiles)},
				{"Total storage", humanize.IBytes(uint64(snap.TotalBytes))},
				{"Unique files", printer.Sprintf("%d", snap.UniqueFiles)},
				{"Duplicate files", printer.Sprintf("%d", snap.DuplicateFiles)},
				{"Duplicate groups", printer.Sprintf("%d", snap.DuplicateGroups)},
				{"Space saved", fmt.Sprintf("%s (%.2f%%)", humanize.IBytes(uint64(snap.SpaceSavedBytes)), snap.SpaceSavedPct)},
				{"Files consolidated", printer.Sprintf("%d", snap.FilesConsolidated)},
				{"Symlinks created", printer.Sprintf("%d", snap.SymlinksCreated)},
			}
			if snap.LastScan != "" {
				rows = append(rows, []string{"Last scan", snap.LastScan})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Statistic", "Value"}, rows, 1))
			return nil
		},
	}
	return cmd
}
