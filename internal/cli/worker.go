package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/daniel-kadosh/JobDaemon/internal/scanner"
	"github.com/daniel-kadosh/JobDaemon/internal/worker"
)

// workerCmd is never typed by an operator; the dispatcher's ReexecLauncher
// invokes it directly with the slot index as its only argument.
var workerCmd = &cobra.Command{
	Use:    worker.Subcommand + " <slot>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid slot %q: %w", args[0], err)
		}
		scannerApp := &scanner.App{Dir: watchDir}
		code := worker.Run(context.Background(), scannerApp, slot)
		os.Exit(code)
		return nil
	},
}
