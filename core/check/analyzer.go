package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// APIArchives locates one side of a comparison.
type APIArchives struct {
	// Version is the release the archives belong to, empty for a working
	// tree.
	Version string
	// Archives hold the API being compared.
	Archives []string
	// SupportArchives hold dependencies needed to interpret Archives.
	SupportArchives []string
}

func (a APIArchives) String() string {
	version := a.Version
	if version == "" {
		version = "working tree"
	}
	s := fmt.Sprintf("%s [%s]", version, strings.Join(a.Archives, ", "))
	if len(a.SupportArchives) > 0 {
		s += fmt.Sprintf(" support [%s]", strings.Join(a.SupportArchives, ", "))
	}
	return s
}

// Request is the input of one analysis.
type Request struct {
	// Config is the serialized analyzer configuration.
	Config []byte
	Old    APIArchives
	New    APIArchives
}

// Finding is one break detected by an analyzer.
type Finding struct {
	Module breaks.GroupAndName
	Break  breaks.AcceptedBreak
	// Justification is set for accepted findings.
	Justification string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Module, f.Break)
}

// Result is the outcome of one analysis.
type Result struct {
	Passed bool
	// Report is the rendered human-readable report.
	Report string
	// Messages describe each reason the analysis failed.
	Messages   []string
	Unaccepted []Finding
	Accepted   []Finding
}

// Analyzer compares two versions of an API.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, req Request) (Result, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
