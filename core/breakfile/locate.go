package breakfile

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/emenda-labs/breakcheck/pkg/textpatch"
)

// topLevelEntry locates one key of the root mapping in the source text.
type topLevelEntry struct {
	// keyLineStart is the offset of the first byte of the key's line.
	keyLineStart int
	// value spans the value text: from just after the ':' to the end of the
	// last content line that belongs to it, stopping before a comment on
	// that line.
	value textpatch.Range
	// comment spans a comment trailing the value on its last line, if any.
	comment textpatch.Range
}

// locateTopLevel finds every key of the root block mapping of src. It
// returns the entries by key and the keys in document order. A document
// without content yields no entries.
func locateTopLevel(src string) (map[string]topLevelEntry, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(src), &root); err != nil {
		return nil, nil, fmt.Errorf("parsing accepted breaks: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return map[string]topLevelEntry{}, nil, nil
	}

	mapping := root.Content[0]
	if mapping.Kind == yaml.ScalarNode && mapping.Tag == "!!null" {
		return map[string]topLevelEntry{}, nil, nil
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("accepted breaks document must be a mapping (line %d)", mapping.Line)
	}
	if mapping.Style&yaml.FlowStyle != 0 {
		return nil, nil, fmt.Errorf("accepted breaks document uses a flow-style mapping and cannot be edited in place")
	}

	lines := newLineIndex(src)
	entries := make(map[string]topLevelEntry, len(mapping.Content)/2)
	order := make([]string, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		if key.Kind != yaml.ScalarNode {
			return nil, nil, fmt.Errorf("unsupported complex key at line %d", key.Line)
		}

		keyStart, err := lines.offset(key.Line, key.Column)
		if err != nil {
			return nil, nil, err
		}
		valueStart, err := afterKey(src, keyStart, key)
		if err != nil {
			return nil, nil, err
		}

		limit := len(src)
		if i+2 < len(mapping.Content) {
			next := mapping.Content[i+2]
			limit = lines.start(next.Line)
		}

		entry := topLevelEntry{
			keyLineStart: lines.start(key.Line),
			value:        textpatch.Range{Start: valueStart, End: valueEnd(src, valueStart, limit)},
		}
		if from, ok := lastTokenOffset(lines, mapping.Content[i+1]); ok {
			if c, ok := inlineComment(src, max(from, valueStart), entry.value.End); ok {
				entry.comment = c
				entry.value.End = valueStart + len(strings.TrimRight(src[valueStart:c.Start], " \t"))
			}
		}
		entries[key.Value] = entry
		order = append(order, key.Value)
	}
	return entries, order, nil
}

// afterKey returns the offset just past the ':' that ends the key starting
// at offset start.
func afterKey(src string, start int, key *yaml.Node) (int, error) {
	i := start
	switch {
	case key.Style&yaml.DoubleQuotedStyle != 0:
		i = skipQuoted(src, i, '"')
	case key.Style&yaml.SingleQuotedStyle != 0:
		i = skipQuoted(src, i, '\'')
	default:
		if !strings.HasPrefix(src[i:], key.Value) {
			return 0, fmt.Errorf("cannot find key %q at line %d", key.Value, key.Line)
		}
		i += len(key.Value)
	}
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i >= len(src) || src[i] != ':' {
		return 0, fmt.Errorf("cannot find ':' after key %q at line %d", key.Value, key.Line)
	}
	return i + 1, nil
}

// skipQuoted returns the offset just past the quoted scalar opening at i.
// Double-quoted scalars escape with a backslash, single-quoted ones by
// doubling the quote.
func skipQuoted(src string, i int, quote byte) int {
	i++
	for i < len(src) {
		switch {
		case quote == '"' && src[i] == '\\':
			i += 2
		case src[i] == quote && quote == '\'' && i+1 < len(src) && src[i+1] == '\'':
			i += 2
		case src[i] == quote:
			return i + 1
		default:
			i++
		}
	}
	return i
}

// valueEnd trims [start, limit) back past trailing whitespace and past
// comment lines that start in column 0, which belong to the next key.
func valueEnd(src string, start, limit int) int {
	end := limit
	for {
		end = start + len(strings.TrimRight(src[start:end], " \t\r\n"))
		lineStart := strings.LastIndexByte(src[start:end], '\n') + 1 + start
		if lineStart > start && lineStart < end && src[lineStart] == '#' {
			end = lineStart
			continue
		}
		return end
	}
}

// lastTokenOffset returns the offset of the last scalar or collection in the
// subtree of n. Block scalars report false: their last line is content, so a
// '#' on it is never a comment.
func lastTokenOffset(lines lineIndex, n *yaml.Node) (int, bool) {
	for len(n.Content) > 0 {
		n = n.Content[len(n.Content)-1]
	}
	if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return 0, false
	}
	off, err := lines.offset(n.Line, n.Column)
	if err != nil {
		return 0, false
	}
	return off, true
}

// inlineComment looks for a comment in src[from:end] on the line where from
// sits. Quoted scalars are skipped; reaching the end of the line first
// means there is none.
func inlineComment(src string, from, end int) (textpatch.Range, bool) {
	var quote byte
	for i := from; i < end; i++ {
		c := src[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote == '\'' && c == '\'' && i+1 < end && src[i+1] == '\'':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\n':
			return textpatch.Range{}, false
		case (c == '"' || c == '\'') && (i == from || strings.IndexByte(" \t[{,:", src[i-1]) >= 0):
			quote = c
		case c == '#' && i > from && (src[i-1] == ' ' || src[i-1] == '\t'):
			stop := strings.IndexByte(src[i:end], '\n')
			if stop < 0 {
				stop = end - i
			}
			return textpatch.Range{Start: i, End: i + len(strings.TrimRight(src[i:i+stop], " \t\r"))}, true
		}
	}
	return textpatch.Range{}, false
}

type lineIndex struct {
	src    string
	starts []int
}

func newLineIndex(src string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{src: src, starts: starts}
}

// start returns the offset of the first byte of a 1-based line.
func (l lineIndex) start(line int) int {
	if line-1 >= len(l.starts) {
		return len(l.src)
	}
	return l.starts[line-1]
}

// offset converts a 1-based line and a 1-based character column, as
// reported by yaml.v3, into a byte offset.
func (l lineIndex) offset(line, column int) (int, error) {
	if line < 1 || line > len(l.starts) {
		return 0, fmt.Errorf("line %d is outside the document", line)
	}
	off := l.starts[line-1]
	for c := 1; c < column; c++ {
		if off >= len(l.src) || l.src[off] == '\n' {
			return 0, fmt.Errorf("column %d is outside line %d", column, line)
		}
		_, size := utf8.DecodeRuneInString(l.src[off:])
		off += size
	}
	return off, nil
}
