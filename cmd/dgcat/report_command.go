package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dgcat/internal/config"
	"dgcat/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "report <root>",
		Short: "Generate a markdown catalog report",
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

			md, err := report.New(store).Markdown(cmd.Context())
			if err != nil {
				return err
			}

			if outputPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}

			target, err := config.ExpandPath(outputPath)
			if err != nil {
				return err
			}
			if err := os.WriteFile(target, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote report to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}
