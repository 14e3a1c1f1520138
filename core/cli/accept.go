package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// AcceptOptions holds the parsed flags for "accept".
type AcceptOptions struct {
	Global GlobalOptions
	// Module is a group:name identity, empty for the module in Dir.
	Module        string
	Code          string
	Old           string
	New           string
	Justification string
	// AfterVersion is the baseline the break is accepted against. When
	// empty it is resolved like the check baseline, using Version.
	AfterVersion string
	Version      string
	DryRun       bool
}

// AcceptRunFunc is the handler of "accept".
type AcceptRunFunc func(ctx context.Context, opts AcceptOptions) error

// NewAcceptCmd creates the "accept" subcommand.
func NewAcceptCmd(globals *GlobalOptions, runFunc AcceptRunFunc) *cobra.Command {
	var opts AcceptOptions

	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Accept one API break",
		Long:  "Record a single API break as accepted in the accepted-breaks file, with a justification.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateAcceptFlags(opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Global = *globals
			return runFunc(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Module, "module", "", "Module identity as group:name; must match go.mod (default: derived from go.mod)")
	cmd.Flags().StringVar(&opts.Code, "code", "", "Break code, e.g. go.removed (required)")
	cmd.Flags().StringVar(&opts.Old, "old", "", "Element before the change")
	cmd.Flags().StringVar(&opts.New, "new", "", "Element after the change")
	cmd.Flags().StringVar(&opts.Justification, "justification", "", "Why the break is acceptable (required)")
	cmd.Flags().StringVar(&opts.AfterVersion, "after-version", "", "Baseline release the break is accepted against")
	cmd.Flags().StringVar(&opts.Version, "version", "", "Release being prepared, used to resolve the baseline")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the change to the accepted-breaks file without writing it")

	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("justification")

	return cmd
}

func validateAcceptFlags(opts AcceptOptions) error {
	if err := validateModule(opts.Module); err != nil {
		return err
	}
	if strings.TrimSpace(opts.Code) == "" {
		return fmt.Errorf("--code is required")
	}
	if strings.TrimSpace(opts.Justification) == "" {
		return fmt.Errorf("--justification must not be blank")
	}
	if err := validateVersion("--after-version", opts.AfterVersion, false); err != nil {
		return err
	}
	return validateVersion("--version", opts.Version, false)
}

// AcceptAllOptions holds the parsed flags for "accept-all".
type AcceptAllOptions struct {
	CheckOptions
	Justification string
	DryRun        bool
}

// AcceptAllRunFunc is the handler of "accept-all".
type AcceptAllRunFunc func(ctx context.Context, opts AcceptAllOptions) error

// NewAcceptAllCmd creates the "accept-all" subcommand.
func NewAcceptAllCmd(globals *GlobalOptions, runFunc AcceptAllRunFunc) *cobra.Command {
	var opts AcceptAllOptions

	cmd := &cobra.Command{
		Use:   "accept-all",
		Short: "Accept every API break the check reports",
		Long:  "Run the API check and record every unaccepted break it finds under one justification.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateCheckFlags(opts.CheckOptions); err != nil {
				return err
			}
			if strings.TrimSpace(opts.Justification) == "" {
				return fmt.Errorf("--justification must not be blank")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Global = *globals
			return runFunc(cmd.Context(), opts)
		},
	}

	addCheckFlags(cmd, &opts.CheckOptions)
	cmd.Flags().StringVar(&opts.Justification, "justification", "", "Why the breaks are acceptable (required)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the change to the accepted-breaks file without writing it")

	cmd.MarkFlagRequired("justification")

	return cmd
}

func validateModule(module string) error {
	if module == "" {
		return nil
	}
	if _, err := breaks.ParseGroupAndName(module); err != nil {
		return fmt.Errorf("--module: %w", err)
	}
	return nil
}

func validateVersion(flag, value string, required bool) error {
	if value == "" {
		if required {
			return fmt.Errorf("%s is required", flag)
		}
		return nil
	}
	if _, err := breaks.ParseVersion(value); err != nil {
		return fmt.Errorf("%s: %w", flag, err)
	}
	return nil
}
