// Package diffview renders unified diffs of rewritten files for dry runs.
package diffview

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

const contextLines = 3

// Preview is the difference between two versions of a file.
type Preview struct {
	// Text is the unified diff, empty when the versions are equal.
	Text    string
	Added   int
	Removed int
}

// Empty reports whether the versions are equal.
func (p Preview) Empty() bool {
	return p.Text == ""
}

func (p Preview) String() string {
	if p.Empty() {
		return "no changes"
	}
	return fmt.Sprintf("%d line(s) added, %d line(s) removed", p.Added, p.Removed)
}

// Unified diffs before and after, labelling both sides with path.
func Unified(path, before, after string) (Preview, error) {
	if before == after {
		return Preview{}, nil
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  contextLines,
	})
	if err != nil {
		return Preview{}, fmt.Errorf("diffing %s: %w", path, err)
	}

	fd, err := diff.ParseFileDiff([]byte(text))
	if err != nil {
		return Preview{}, fmt.Errorf("parsing diff of %s: %w", path, err)
	}
	p := Preview{Text: text}
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				p.Added++
			case strings.HasPrefix(line, "-"):
				p.Removed++
			}
		}
	}
	return p, nil
}

// splitLines keeps line endings. An empty file has no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}
