// Package cli implements the resumatch command line.
package cli

import (
	"github.com/spf13/cobra"
)

const app = "resumatch"

type rootOptions struct {
	configPath string
	debug      bool
	json       bool
	// quiet keeps the logger to errors while a full-screen UI owns the terminal.
	quiet bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           app,
		Short:         "resumatch ranks resumes against a job description by semantic similarity",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "a config file (default is ./config.yaml, then ~/.config/resumatch/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolVarP(&opts.json, "json", "j", false, "json format for logging")

	root.AddCommand(
		newServeCmd(opts),
		newRebuildCmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newMatchCmd(opts),
		newTUICmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
