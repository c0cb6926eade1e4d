// Package cmd provides the CLI commands for coursekit.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xu2799/it-platform-frontend/internal/config"
)

var (
	cfgFile      string
	outputFormat string
	traceFlag    bool
	verboseFlag  bool
	metricsFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "coursekit",
	Short: "coursekit - course platform client",
	Long: `coursekit is a terminal client for the course platform REST API.

It keeps a login session on disk, caches the course catalog for the
duration of a command, and applies the same navigation rules as the web
client when you ask it to open a view.

Configuration:
  Config is loaded from coursekit.yaml in the current directory,
  $HOME/.coursekit/, or /etc/coursekit/.

  Environment variables can override config values with the COURSEKIT_ prefix.
  Example: COURSEKIT_API_BASE_URL=https://courses.example.com

Commands:
  login       Log in and store the session
  logout      Forget the stored session
  whoami      Show the logged-in user
  courses     List courses
  course      Show one course with its modules and lessons
  categories  List course categories
  favorite    Toggle a course in or out of your favorites
  navigate    Check whether a view may be opened
  routes      List the route table
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./coursekit.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatText, "output format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "write one span per API request to stderr")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().BoolVar(&metricsFlag, "metrics", false, "print client metrics to stderr on exit")
}

func initConfig() {
	config.InitViper(cfgFile)
}
