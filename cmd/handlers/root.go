package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yourbody/internal/config"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yourbody",
		Short: "YourBody is the habit tracking backend for the Telegram mini-app.",
		Long: `YourBody serves the mini-app API: food, sleep and workout logging plus
daily and weekly narrative summaries generated by an analysis provider and
cached per period.

Summaries are recomputed lazily: a period's cached artifact is reused until
the underlying entries change, and concurrent requests for the same period
collapse into one provider call.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.yourbody.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewSummaryCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
