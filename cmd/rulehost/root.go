package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/b3ckham/Orchestrator/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rulehost",
	Short: "Rulehost - hot-swappable business rule engine",
	Long: `Rulehost hosts named business rule sets and evaluates facts against them.

Rule sets are YAML documents grouped by agenda group. Deploying a rule set
recompiles the whole corpus into a new artifact and swaps it in atomically:
an invalid rule set is rejected and the running artifact is left untouched.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and RULEHOST_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
