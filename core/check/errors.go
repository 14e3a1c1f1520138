package check

import (
	"fmt"
	"strings"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// AnalysisFailedError reports unaccepted breaks or an analyzer that could
// not run. The message is every analyzer message joined by a blank line.
type AnalysisFailedError struct {
	Module   breaks.GroupAndName
	Messages []string
	// Result is the analyzer outcome, zero when the analyzer did not run.
	Result Result
	Err    error
}

func (e *AnalysisFailedError) Error() string {
	return strings.Join(e.Messages, "\n\n")
}

func (e *AnalysisFailedError) Unwrap() error {
	return e.Err
}

// ResolveError reports that the release a module is compared against could
// not be resolved.
type ResolveError struct {
	Module  breaks.GroupAndName
	Version string
	Errs    []error
}

func (e *ResolveError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	version := e.Version
	if version == "" {
		version = "<current version>"
	}
	return fmt.Sprintf(`Failed to resolve the previous release of %[1]s to compare its API against.

%[3]s

If the previous release was never published, or you want to compare against
a different release, record a replacement with:

    breakcheck override-version --module %[1]s --version %[2]s --replacement-version <version>
`, e.Module, version, strings.Join(msgs, "\n\n"))
}

func (e *ResolveError) Unwrap() []error {
	return e.Errs
}
