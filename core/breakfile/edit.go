package breakfile

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/pkg/textpatch"
)

// AddBreaks rewrites src so that it also accepts the given breaks for module
// under (justification, afterVersion).
func AddBreaks(src []byte, justification string, afterVersion breaks.Version, module breaks.GroupAndName, accepted ...breaks.AcceptedBreak) ([]byte, error) {
	doc, err := Parse(src)
	if err != nil {
		return nil, err
	}
	next, err := doc.WithAcceptedBreaks(justification, afterVersion, module, accepted...)
	if err != nil {
		return nil, err
	}
	return Rewrite(src, next)
}

// SetVersionOverride rewrites src so that module at version is compared
// against replacement.
func SetVersionOverride(src []byte, module breaks.GroupAndName, version, replacement breaks.Version) ([]byte, error) {
	doc, err := Parse(src)
	if err != nil {
		return nil, err
	}
	next, err := doc.WithVersionOverride(module, version, replacement)
	if err != nil {
		return nil, err
	}
	return Rewrite(src, next)
}

// Migrate rewrites a document in the deprecated schema into the current one.
// Documents already in the current schema are returned unchanged.
func Migrate(src []byte) ([]byte, error) {
	doc, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if !doc.Migrated {
		return src, nil
	}
	return Rewrite(src, doc)
}

// Rewrite returns src edited so that it parses to next. Only the top-level
// values whose content differs are replaced; everything else in the text is
// kept byte for byte. Missing keys are appended at the end of the document,
// except schemaVersion, which goes in front of the first key.
func Rewrite(src []byte, next Document) ([]byte, error) {
	prev, err := Parse(src)
	if err != nil {
		return nil, err
	}
	text := string(src)
	entries, order, err := locateTopLevel(text)
	if err != nil {
		return nil, err
	}

	var changes []keyChange
	if prev.Migrated || !sameCollections(prev.AcceptedBreaks, next.AcceptedBreaks) {
		wire := toWireCollections(next.AcceptedBreaks)
		value, err := renderValue(wire, len(wire) > 0)
		if err != nil {
			return nil, err
		}
		changes = append(changes, keyChange{key: keyAcceptedBreaks, value: value})
	}
	if !maps.Equal(prev.VersionOverrides, next.VersionOverrides) {
		wire := toWireOverrides(next.VersionOverrides)
		value, err := renderValue(wire, len(wire) > 0)
		if err != nil {
			return nil, err
		}
		changes = append(changes, keyChange{key: keyVersionOverrides, value: value})
	}
	if len(changes) == 0 {
		return src, nil
	}

	eol := lineEnding(text)
	var patches []textpatch.Patch
	var appended strings.Builder

	schemaValue := " " + strconv.Itoa(CurrentSchema)
	if e, ok := entries[keySchemaVersion]; ok {
		if strings.TrimSpace(text[e.value.Start:e.value.End]) != strconv.Itoa(CurrentSchema) {
			patches = append(patches, textpatch.Patch{Range: e.value, Replacement: schemaValue})
		}
	} else if len(order) > 0 {
		patches = append(patches, textpatch.Insert(entries[order[0]].keyLineStart, keySchemaVersion+":"+schemaValue+eol))
	} else {
		appended.WriteString(keySchemaVersion + ":" + schemaValue + eol)
	}

	for _, c := range changes {
		value := strings.ReplaceAll(c.value, "\n", eol)
		e, ok := entries[c.key]
		switch {
		case !ok:
			appended.WriteString(c.key + ":" + value + eol)
		case e.comment.End > e.comment.Start && strings.HasPrefix(c.value, "\n"):
			// A block value starts on the next line; keep the comment on
			// the key's line.
			patches = append(patches, textpatch.Patch{
				Range:       textpatch.Range{Start: e.value.Start, End: e.comment.End},
				Replacement: " " + text[e.comment.Start:e.comment.End] + value,
			})
		default:
			patches = append(patches, textpatch.Patch{Range: e.value, Replacement: value})
		}
	}
	if appended.Len() > 0 {
		tail := appended.String()
		if len(text) > 0 && !strings.HasSuffix(text, "\n") {
			tail = eol + tail
		}
		patches = append(patches, textpatch.Insert(len(text), tail))
	}

	out, err := textpatch.Apply(text, patches)
	if err != nil {
		return nil, fmt.Errorf("rewriting accepted breaks: %w", err)
	}

	check, err := Parse([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("rewritten accepted breaks do not parse: %w", err)
	}
	if !sameCollections(check.AcceptedBreaks, next.AcceptedBreaks) || !maps.Equal(check.VersionOverrides, next.VersionOverrides) {
		return nil, fmt.Errorf("rewritten accepted breaks do not match the intended content")
	}
	return []byte(out), nil
}

// lineEnding returns "\r\n" when the first line of text ends that way, and
// "\n" otherwise.
func lineEnding(text string) string {
	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

type keyChange struct {
	key   string
	value string
}

func sameCollections(a, b []breaks.BreakCollection) bool {
	a, b = breaks.MergeCollections(a...), breaks.MergeCollections(b...)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
