// Package main is the entry point of the roster manager.
//
// Usage:
//
//	roster serve -c config/local.yaml    # start the web app
//	roster dump  -c config/local.yaml    # print the stored roster
//	roster version                       # show version info
//
// Every command also accepts the config path from CONFIG_PATH:
//
//	CONFIG_PATH=config/local.yaml roster serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Track students, their points and whether they have paid",
	Long: `roster keeps a list of students with a point count and a paid flag.

Points move in steps of 25, a paid flag flips only after a confirming
second click, and a student can only be removed once paid. The roster is
kept in a local SQLite file and served as a single web page plus a JSON API.

Quick start:
  1. Create a config file (see config/local.yaml)
  2. Run: roster serve -c config/local.yaml
  3. Open http://localhost:8082 in your browser`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (or CONFIG_PATH)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "roster %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}
