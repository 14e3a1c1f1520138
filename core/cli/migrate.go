package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// MigrateOptions holds the parsed flags for "migrate".
type MigrateOptions struct {
	Global GlobalOptions
	DryRun bool
}

// MigrateRunFunc is the handler of "migrate".
type MigrateRunFunc func(ctx context.Context, opts MigrateOptions) error

// NewMigrateCmd creates the "migrate" subcommand.
func NewMigrateCmd(globals *GlobalOptions, runFunc MigrateRunFunc) *cobra.Command {
	var opts MigrateOptions

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the accepted-breaks file to the current schema",
		Long: "Rewrite an accepted-breaks file that uses the deprecated per-version layout into " +
			"the current layout grouped by justification. Comments and other keys are kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Global = *globals
			return runFunc(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the change without writing it")

	return cmd
}
