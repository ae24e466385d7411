package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the reportsvc command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "reportsvc",
		Short:         "Quiz evaluation and performance report service",
		Long:          "reportsvc grades quiz responses, compares them with a reference population and publishes PDF performance reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
	root.PersistentFlags().String("reference", "", "Reference dataset file (overrides REFERENCE_PATH)")

	root.AddCommand(newGenerateCommand())
	root.AddCommand(newEvaluateCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newReferenceCommand())
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}
