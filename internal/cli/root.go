// Package cli implements the wavecast command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPaths []string

var rootCmd = &cobra.Command{
	Use:           "wavecast",
	Short:         "wavecast plays a music queue locally and hands it off to MPD receivers.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configPaths, "config", "c", nil,
		"config file (repeatable; replaces the default search paths)")

	rootCmd.AddCommand(
		newPlayCmd(),
		newStatusCmd(),
		newClearCmd(),
		newDiscoverCmd(),
		newLastfmCmd(),
	)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
