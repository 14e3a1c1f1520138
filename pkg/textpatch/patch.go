package textpatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConflict is matched by every error reporting an overlapping or
// out-of-bounds patch.
var ErrConflict = errors.New("conflicting patch")

// ConflictError identifies the ranges that prevented a batch of patches
// from being applied.
type ConflictError struct {
	Ranges []Range
	Reason string
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Ranges))
	for i, r := range e.Ranges {
		parts[i] = r.String()
	}
	return fmt.Sprintf("conflicting patch %s: %s", strings.Join(parts, " and "), e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Patch deletes the text covered by Range and inserts Replacement in its place.
type Patch struct {
	Range       Range  `json:"range"`
	Replacement string `json:"replacement"`
}

// Of is shorthand for a Patch over [start, end).
func Of(start, end int, replacement string) Patch {
	return Patch{Range: Range{Start: start, End: end}, Replacement: replacement}
}

// Insert returns a patch that inserts text at offset without deleting anything.
func Insert(offset int, text string) Patch {
	return Of(offset, offset, text)
}

// Validate checks that every patch lies within source and that no two
// patches conflict. The first problem found is returned as a *ConflictError.
func Validate(source string, patches []Patch) error {
	for _, p := range patches {
		if !p.Range.valid() {
			return &ConflictError{Ranges: []Range{p.Range}, Reason: "malformed range"}
		}
		if p.Range.End > len(source) {
			return &ConflictError{
				Ranges: []Range{p.Range},
				Reason: fmt.Sprintf("out of bounds for document of length %d", len(source)),
			}
		}
	}

	sorted := sortedByStart(patches)
	for i := range sorted {
		for j := i + 1; j < len(sorted) && sorted[j].Range.Start <= sorted[i].Range.End; j++ {
			if sorted[i].Range.conflicts(sorted[j].Range) {
				return &ConflictError{Ranges: []Range{sorted[i].Range, sorted[j].Range}, Reason: "ranges overlap"}
			}
		}
	}
	return nil
}

// Apply validates patches against source and returns the rewritten text.
// The result is the same as applying each patch in descending order of start
// offset, so that every range still refers to the original text.
func Apply(source string, patches []Patch) (string, error) {
	if err := Validate(source, patches); err != nil {
		return "", err
	}
	if len(patches) == 0 {
		return source, nil
	}

	sorted := sortedByStart(patches)

	var b strings.Builder
	b.Grow(len(source) + replacementGrowth(sorted))
	cursor := 0
	for _, p := range sorted {
		b.WriteString(source[cursor:p.Range.Start])
		b.WriteString(p.Replacement)
		cursor = p.Range.End
	}
	b.WriteString(source[cursor:])
	return b.String(), nil
}

// sortedByStart returns a copy of patches ordered by start offset. An
// insertion sorts before a non-empty range that starts at the same offset,
// so it lands in front of the replaced text.
func sortedByStart(patches []Patch) []Patch {
	sorted := append([]Patch(nil), patches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Range.Start != sorted[j].Range.Start {
			return sorted[i].Range.Start < sorted[j].Range.Start
		}
		return sorted[i].Range.End < sorted[j].Range.End
	})
	return sorted
}

func replacementGrowth(patches []Patch) int {
	n := 0
	for _, p := range patches {
		if d := len(p.Replacement) - p.Range.Len(); d > 0 {
			n += d
		}
	}
	return n
}
