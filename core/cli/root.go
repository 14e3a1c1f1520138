package cli

import (
	"github.com/spf13/cobra"
)

// GlobalOptions holds the flags shared by every command.
type GlobalOptions struct {
	Dir     string
	Verbose bool
	JSON    bool
	NoColor bool
}

// NewRootCmd creates the top-level breakcheck command. Persistent flags are
// parsed into globals.
func NewRootCmd(version string, globals *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakcheck",
		Short: "API compatibility checker for Go modules",
		Long: "Breakcheck compares the exported API of a Go module against its previous release " +
			"and fails when it finds breaking changes nobody has accepted.",
		SilenceUsage: true,
	}

	cmd.Version = version

	f := cmd.PersistentFlags()
	f.StringVarP(&globals.Dir, "dir", "C", ".", "Directory inside the module to operate on")
	f.BoolVarP(&globals.Verbose, "verbose", "v", false, "Enable debug logging")
	f.BoolVar(&globals.JSON, "json", false, "Write logs as JSON lines")
	f.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")

	return cmd
}
