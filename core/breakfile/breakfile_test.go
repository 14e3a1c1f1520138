package breakfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

var foo = breaks.GroupAndName{Group: "com.acme", Name: "foo"}

const currentDoc = `# Accepted API breaks for the acme project.
schemaVersion: 2

# keep this list short
acceptedBreaks:
  - justification: "old one"
    afterVersion: 1.0.0
    breaks:
      com.acme:foo:
        - code: go.removed
          old: com.acme/foo.Gone ()

# overrides below
versionOverrides: {}
`

const legacyDoc = `# legacy file
acceptedBreaks:
  "1.2.0":
    com.acme:foo:
    - code: METHOD_REMOVED
      old: m()
      justification: intentional
`

func TestParse_Current(t *testing.T) {
	doc, err := Parse([]byte(currentDoc))
	require.NoError(t, err)
	assert.False(t, doc.Migrated)
	require.Len(t, doc.AcceptedBreaks, 1)

	c := doc.AcceptedBreaks[0]
	assert.Equal(t, "old one", c.Justification)
	assert.Equal(t, breaks.Version("1.0.0"), c.AfterVersion)
	assert.True(t, c.ForModule(foo).Contains(breaks.AcceptedBreak{Code: "go.removed", OldElement: "com.acme/foo.Gone ()"}))
	assert.Empty(t, doc.VersionOverrides)
}

func TestParse_Legacy(t *testing.T) {
	doc, err := Parse([]byte(legacyDoc))
	require.NoError(t, err)
	assert.True(t, doc.Migrated)
	require.Len(t, doc.AcceptedBreaks, 1)

	c := doc.AcceptedBreaks[0]
	assert.Equal(t, "intentional", c.Justification)
	assert.Equal(t, breaks.Version("1.2.0"), c.AfterVersion)
	assert.Equal(t,
		[]breaks.AcceptedBreak{{Code: "METHOD_REMOVED", OldElement: "m()"}},
		c.ForModule(foo).Sorted(breaks.CompareAcceptedBreaks))
}

func TestParse_ExplicitLegacySchema(t *testing.T) {
	doc, err := Parse([]byte("schemaVersion: 1\nacceptedBreaks: {}\n"))
	require.NoError(t, err)
	assert.True(t, doc.Migrated)
	assert.Empty(t, doc.AcceptedBreaks)
}

func TestParse_Empty(t *testing.T) {
	for _, src := range []string{"", "\n\n", "# nothing yet\n", "acceptedBreaks:\n"} {
		doc, err := Parse([]byte(src))
		require.NoError(t, err, src)
		assert.Empty(t, doc.AcceptedBreaks)
		assert.False(t, doc.Migrated)
	}
}

func TestParse_MergesDuplicateKeys(t *testing.T) {
	src := `schemaVersion: 2
acceptedBreaks:
  - justification: same
    afterVersion: 1.0.0
    breaks:
      com.acme:foo:
        - code: a
  - justification: same
    afterVersion: 1.0.0
    breaks:
      com.acme:bar:
        - code: b
`
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, doc.AcceptedBreaks, 1)
	assert.Equal(t, 2, doc.AcceptedBreaks[0].Breaks.Len())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown schema", "schemaVersion: 3\nacceptedBreaks: []\n", "unknown accepted-breaks schema"},
		{"missing justification", "schemaVersion: 2\nacceptedBreaks:\n  - afterVersion: 1.0.0\n", "justification is required"},
		{"bad version", "acceptedBreaks:\n  - justification: j\n    afterVersion: soon\n", "is not a semantic version"},
		{"bad module", "acceptedBreaks:\n  - justification: j\n    afterVersion: 1.0.0\n    breaks:\n      nocolon:\n        - code: a\n", "is not a group:name module identity"},
		{"missing code", "acceptedBreaks:\n  - justification: j\n    afterVersion: 1.0.0\n    breaks:\n      com.acme:foo:\n        - old: x\n", "code is required"},
		{"bad override", "versionOverrides:\n  com.acme:foo: 1.0.0\n", "group:name@version"},
		{"legacy with bad version", "acceptedBreaks:\n  soon:\n    com.acme:foo:\n      - code: a\n        justification: j\n", "cannot migrate"},
		{"schema 2 with mapping", "schemaVersion: 2\nacceptedBreaks: {}\n", "must be a list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Parse([]byte("schemaVersion: 9\n"))
	assert.True(t, errors.Is(err, ErrUnknownSchema))
}

func TestAddBreaks_PreservesSurroundingText(t *testing.T) {
	added := breaks.AcceptedBreak{Code: "go.renamed", OldElement: "com.acme/foo.A ()", NewElement: "com.acme/foo.B ()"}
	out, err := AddBreaks([]byte(currentDoc), "renamed for clarity", "1.1.0", foo, added)
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "# Accepted API breaks for the acme project.\nschemaVersion: 2\n\n# keep this list short\nacceptedBreaks:\n"), text)
	assert.True(t, strings.HasSuffix(text, "\n\n# overrides below\nversionOverrides: {}\n"), text)

	doc, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, doc.AcceptedBreaks, 2)
	assert.True(t, doc.AcceptedFor(foo, "1.1.0").Contains(added))
	assert.Equal(t, 1, doc.AcceptedFor(foo, "1.0.0").Len())
}

func TestAddBreaks_MergesIntoExistingCollection(t *testing.T) {
	added := breaks.AcceptedBreak{Code: "go.removed", OldElement: "com.acme/foo.Other ()"}
	out, err := AddBreaks([]byte(currentDoc), "old one", "1.0.0", foo, added)
	require.NoError(t, err)

	doc, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, doc.AcceptedBreaks, 1)
	assert.Equal(t, 2, doc.AcceptedBreaks[0].Count())
}

func TestAddBreaks_AlreadyAcceptedIsNoOp(t *testing.T) {
	existing := breaks.AcceptedBreak{Code: "go.removed", OldElement: "com.acme/foo.Gone ()"}
	out, err := AddBreaks([]byte(currentDoc), "old one", "1.0.0", foo, existing)
	require.NoError(t, err)
	assert.Equal(t, currentDoc, string(out))
}

func TestAddBreaks_EmptyDocument(t *testing.T) {
	added := breaks.AcceptedBreak{Code: "METHOD_REMOVED", OldElement: "m()"}
	out, err := AddBreaks(nil, "intentional", "1.2.0", foo, added)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "schemaVersion: 2\nacceptedBreaks:\n"), string(out))

	doc, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, doc.AcceptedFor(foo, "1.2.0").Contains(added))
}

func TestAddBreaks_RejectsBlankJustification(t *testing.T) {
	_, err := AddBreaks([]byte(currentDoc), " ", "1.0.0", foo, breaks.AcceptedBreak{Code: "x"})
	assert.ErrorContains(t, err, "empty justification")
}

func TestAddBreaks_KeepsInlineComments(t *testing.T) {
	src := "schemaVersion: 2 # current\nacceptedBreaks: [] # inline\nversionOverrides: {} # none\n"
	added := breaks.AcceptedBreak{Code: "go.removed", OldElement: "com.acme/foo.Gone ()"}
	out, err := AddBreaks([]byte(src), "intentional", "1.0.0", foo, added)
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "schemaVersion: 2 # current\nacceptedBreaks: # inline\n  - "), text)
	assert.True(t, strings.HasSuffix(text, "\nversionOverrides: {} # none\n"), text)

	doc, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, doc.AcceptedFor(foo, "1.0.0").Contains(added))
}

func TestSetVersionOverride_KeepsCommentAfterInlineValue(t *testing.T) {
	src := "schemaVersion: 2\nacceptedBreaks: []\nversionOverrides: {\"com.acme:foo@1.3.0\": \"1.2.0\"} # pinned\n"
	out, err := SetVersionOverride([]byte(src), foo, "1.3.0", "1.1.0")
	require.NoError(t, err)
	assert.Contains(t, string(out), " # pinned\n")

	doc, err := Parse(out)
	require.NoError(t, err)
	replacement, ok := doc.VersionOverride(foo, "1.3.0")
	require.True(t, ok)
	assert.Equal(t, breaks.Version("1.1.0"), replacement)
}

func TestAddBreaks_KeepsCRLF(t *testing.T) {
	src := strings.ReplaceAll(currentDoc, "\n", "\r\n")
	added := breaks.AcceptedBreak{Code: "go.renamed", OldElement: "com.acme/foo.A ()", NewElement: "com.acme/foo.B ()"}
	out, err := AddBreaks([]byte(src), "renamed for clarity", "1.1.0", foo, added)
	require.NoError(t, err)

	text := string(out)
	assert.Equal(t, strings.Count(text, "\n"), strings.Count(text, "\r\n"), text)
	assert.True(t, strings.HasSuffix(text, "\r\n\r\n# overrides below\r\nversionOverrides: {}\r\n"), text)

	doc, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, doc.AcceptedFor(foo, "1.1.0").Contains(added))
}

func TestSetVersionOverride_KeepsCRLFWhenAppending(t *testing.T) {
	out, err := SetVersionOverride([]byte("schemaVersion: 2\r\nacceptedBreaks: []\r\n"), foo, "1.3.0", "1.2.0")
	require.NoError(t, err)
	text := string(out)
	assert.Equal(t, strings.Count(text, "\n"), strings.Count(text, "\r\n"), text)
}

func TestMigrate(t *testing.T) {
	out, err := Migrate([]byte(legacyDoc))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# legacy file\nschemaVersion: 2\nacceptedBreaks:\n"), string(out))

	doc, err := Parse(out)
	require.NoError(t, err)
	assert.False(t, doc.Migrated)
	require.Len(t, doc.AcceptedBreaks, 1)
	assert.Equal(t, "intentional", doc.AcceptedBreaks[0].Justification)

	again, err := Migrate(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestMigrate_ReplacesOldSchemaMarker(t *testing.T) {
	src := "schemaVersion: 1 # old\nacceptedBreaks:\n  1.0.0:\n    com.acme:foo:\n      - code: a\n        justification: j\n"
	out, err := Migrate([]byte(src))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "schemaVersion: 2 # old\nacceptedBreaks:"), string(out))
}

func TestSetVersionOverride(t *testing.T) {
	src := "schemaVersion: 2\nacceptedBreaks: []"
	out, err := SetVersionOverride([]byte(src), foo, "1.3.0", "1.2.0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), src+"\nversionOverrides:\n"), string(out))

	doc, err := Parse(out)
	require.NoError(t, err)
	replacement, ok := doc.VersionOverride(foo, "v1.3.0")
	require.True(t, ok)
	assert.Equal(t, breaks.Version("1.2.0"), replacement)

	out, err = SetVersionOverride(out, foo, "1.3.0", "1.1.0")
	require.NoError(t, err)
	doc, err = Parse(out)
	require.NoError(t, err)
	assert.Len(t, doc.VersionOverrides, 1)
	replacement, _ = doc.VersionOverride(foo, "1.3.0")
	assert.Equal(t, breaks.Version("1.1.0"), replacement)
}

func TestRewrite_FlowRootRejected(t *testing.T) {
	_, err := AddBreaks([]byte("{schemaVersion: 2, acceptedBreaks: []}"), "j", "1.0.0", foo, breaks.AcceptedBreak{Code: "a"})
	assert.ErrorContains(t, err, "flow-style")
}

func TestEncode(t *testing.T) {
	doc, err := Parse([]byte(legacyDoc))
	require.NoError(t, err)

	out, err := Encode(doc)
	require.NoError(t, err)
	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.False(t, reparsed.Migrated)
	require.Len(t, reparsed.AcceptedBreaks, 1)
	assert.True(t, reparsed.AcceptedBreaks[0].Equal(doc.AcceptedBreaks[0]))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	text, doc, err := ReadFile(filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	assert.Nil(t, text)
	assert.Empty(t, doc.AcceptedBreaks)

	path := filepath.Join(dir, "accepted-breaks.yml")
	require.NoError(t, os.WriteFile(path, []byte(currentDoc), 0o644))
	text, doc, err = ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, currentDoc, string(text))
	assert.Len(t, doc.AcceptedBreaks, 1)
}

func TestLocateTopLevel(t *testing.T) {
	src := "\"quoted key\": 1\n'single''s': [a, b]\nplain:\n  nested: true\n# trailing comment\n"
	entries, order, err := locateTopLevel(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"quoted key", "single's", "plain"}, order)

	assert.Equal(t, " 1", src[entries["quoted key"].value.Start:entries["quoted key"].value.End])
	assert.Equal(t, " [a, b]", src[entries["single's"].value.Start:entries["single's"].value.End])
	assert.Equal(t, "\n  nested: true", src[entries["plain"].value.Start:entries["plain"].value.End])
	assert.Equal(t, strings.Index(src, "plain"), entries["plain"].keyLineStart)
}

func TestLocateTopLevel_InlineComments(t *testing.T) {
	src := "a: [x, \"y # not a comment\"] # real\nb: 'it''s # text'\nc: |\n  keep # this\nd:\n  e: 1 # last\n"
	entries, _, err := locateTopLevel(src)
	require.NoError(t, err)

	a := entries["a"]
	assert.Equal(t, " [x, \"y # not a comment\"]", src[a.value.Start:a.value.End])
	assert.Equal(t, "# real", src[a.comment.Start:a.comment.End])

	b := entries["b"]
	assert.Equal(t, " 'it''s # text'", src[b.value.Start:b.value.End])
	assert.Equal(t, b.comment.Start, b.comment.End)

	c := entries["c"]
	assert.Equal(t, " |\n  keep # this", src[c.value.Start:c.value.End])
	assert.Equal(t, c.comment.Start, c.comment.End)

	d := entries["d"]
	assert.Equal(t, "\n  e: 1", src[d.value.Start:d.value.End])
	assert.Equal(t, "# last", src[d.comment.Start:d.comment.End])
}

func TestLineIndex_Offset(t *testing.T) {
	l := newLineIndex("héllo: 1\nwörld: 2\n")
	off, err := l.offset(2, 3)
	require.NoError(t, err)
	assert.Equal(t, "rld: 2\n", "héllo: 1\nwörld: 2\n"[off:])

	_, err = l.offset(9, 1)
	assert.Error(t, err)
}
