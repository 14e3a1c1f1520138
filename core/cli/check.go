package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// CheckOptions holds the parsed flags for "check".
type CheckOptions struct {
	Global GlobalOptions
	// Version is the release being prepared, empty when unknown.
	Version string
	// Against overrides the baseline release.
	Against        string
	ReportOutput   string
	ReportTemplate string
}

// CheckRunFunc is the function signature for the check command handler.
// It is injected by the wiring layer (cmd/breakcheck/main.go).
type CheckRunFunc func(ctx context.Context, opts CheckOptions) error

// NewCheckCmd creates the "check" subcommand.
func NewCheckCmd(globals *GlobalOptions, runFunc CheckRunFunc) *cobra.Command {
	var opts CheckOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the module API against its previous release",
		Long: "Compare the exported API of the working tree with the previous release of the module " +
			"and fail if any breaking change has not been accepted.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateCheckFlags(opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Global = *globals
			return runFunc(cmd.Context(), opts)
		},
	}

	addCheckFlags(cmd, &opts)

	return cmd
}

func addCheckFlags(cmd *cobra.Command, opts *CheckOptions) {
	cmd.Flags().StringVar(&opts.Version, "version", "", "Release being prepared (e.g. v1.4.0); defaults to the next release")
	cmd.Flags().StringVar(&opts.Against, "against", "", "Compare against this release instead of the previous one")
	cmd.Flags().StringVar(&opts.ReportOutput, "report", "", "Write the report to this file")
	cmd.Flags().StringVar(&opts.ReportTemplate, "report-template", "", "Report template name or file")
}

func validateCheckFlags(opts CheckOptions) error {
	if err := validateVersion("--version", opts.Version, false); err != nil {
		return err
	}
	return validateVersion("--against", opts.Against, false)
}
