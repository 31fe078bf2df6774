package cmd

import "yourbody/cmd/handlers"

// Execute runs the root command with all subcommands attached.
func Execute() {
	handlers.Execute()
}
