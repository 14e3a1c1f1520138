package driver

import (
	"context"

	"github.com/emenda-labs/breakcheck/core/changespec"
)

// LanguageDriver is the interface each language must implement to support
// API compatibility checks.
type LanguageDriver interface {
	// Name identifies the driver in the analyzer configuration.
	Name() string

	// FetchSource downloads module source and unpacks it to a local directory.
	// Returns the path to the unpacked source and a cleanup function that
	// removes the temp directory.
	FetchSource(ctx context.Context, module, version string) (path string, cleanup func(), err error)

	// ComputeChanges diffs two unpacked module versions and returns the
	// breaking changes between them.
	ComputeChanges(ctx context.Context, oldPath, newPath, oldVersion, newVersion string) (changespec.ChangeSpec, error)
}

// VersionResolver finds the release a module is compared against.
type VersionResolver interface {
	// PreviousVersion returns the highest published release of module below
	// current. An empty current selects the highest release overall.
	PreviousVersion(ctx context.Context, module, current string) (string, error)
}
