// Command scheduler runs the Scheduler Core: the cron-driven tick loops
// that lease due work and dispatch it onto the broker, plus the background
// reaper that requeues items stuck in PROCESSING. The status subcommand
// gives operators a read-only table view of pool sizes by status.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "scheduler",
		Short: "Scheduler Core: cron dispatch and lease reaping",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newStatusCommand())

	return root
}
