package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// OverrideVersionOptions holds the parsed flags for "override-version".
type OverrideVersionOptions struct {
	Global GlobalOptions
	// Module is a group:name identity, empty for the module in Dir.
	Module      string
	Version     string
	Replacement string
	DryRun      bool
}

// OverrideVersionRunFunc is the handler of "override-version".
type OverrideVersionRunFunc func(ctx context.Context, opts OverrideVersionOptions) error

// NewOverrideVersionCmd creates the "override-version" subcommand.
func NewOverrideVersionCmd(globals *GlobalOptions, runFunc OverrideVersionRunFunc) *cobra.Command {
	var opts OverrideVersionOptions

	cmd := &cobra.Command{
		Use:   "override-version",
		Short: "Compare a release against a chosen baseline",
		Long: "Record that the given release of a module is compared against --replacement-version " +
			"instead of its previous published release.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateModule(opts.Module); err != nil {
				return err
			}
			if err := validateVersion("--version", opts.Version, true); err != nil {
				return err
			}
			return validateVersion("--replacement-version", opts.Replacement, true)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Global = *globals
			return runFunc(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Module, "module", "", "Module identity as group:name; must match go.mod (default: derived from go.mod)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "Release whose baseline is overridden (required)")
	cmd.Flags().StringVar(&opts.Replacement, "replacement-version", "", "Release to compare against instead (required)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the change without writing it")

	cmd.MarkFlagRequired("version")
	cmd.MarkFlagRequired("replacement-version")

	return cmd
}
