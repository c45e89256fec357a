// Package cmd provides the command-line interface of vmsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd creates the vmsim command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vmsim",
		Short: "vmsim simulates a paged virtual memory backed by a swap file.",
		Long: `vmsim simulates a paged virtual memory. An MMU translates ` +
			`byte reads and writes to a small physical memory and moves ` +
			`pages to and from a swap file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newMkswapCmd(),
		newInspectCmd(),
		newEventsCmd(),
	)

	return rootCmd
}

// Execute runs the command line. It exits with status 1 on failure, after
// running the exit handlers.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
