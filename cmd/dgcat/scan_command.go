package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"dgcat/internal/logging"
	"dgcat/internal/scanner"
	"dgcat/internal/walker"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var subfolder string
	var skipHash bool

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Walk a video tree, fingerprint collisions, and update the catalog",
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
			logger = logger.With(logging.String("session_id", uuid.NewString()))

			opts := scanner.Options{
				Root:      root,
				Subfolder: subfolder,
				SkipHash:  skipHash,
			}

			var bar *progressbar.ProgressBar
			if isTerminal(os.Stderr) {
				bar = newScanProgress()
				opts.OnFile = func(walker.Entry) {
					_ = bar.Add(1)
				}
			}

			result, err := scanner.New(cfg, store, logger).Scan(cmd.Context(), opts)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d files (%d new, %d known, %d hashed)\n",
				result.FilesSeen, result.FilesNew, result.FilesKnown, result.FilesHashed)
			printFaults(out, &result.Faults)
			return nil
		},
	}

	cmd.Flags().StringVar(&subfolder, "subfolder", "", "Restrict the scan to a year/month subfolder (for example 2024/06)")
	cmd.Flags().BoolVar(&skipHash, "skip-hash", false, "Skip fingerprinting; same-size files become unconfirmed candidates")
	return cmd
}

func newScanProgress() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
