package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

var fooModule = breaks.GroupAndName{Group: "com.acme", Name: "foo"}

func TestUpgrade_SingleEntry(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"1.2.0": {"com.acme:foo": [{"code":"METHOD_REMOVED","old":"m()","justification":"intentional"}]}}`), &doc))

	collections, err := doc.Upgrade()
	require.NoError(t, err)
	require.Len(t, collections, 1)

	c := collections[0]
	assert.Equal(t, "intentional", c.Justification)
	assert.Equal(t, breaks.Version("1.2.0"), c.AfterVersion)
	assert.Equal(t, []breaks.GroupAndName{fooModule}, c.Breaks.Modules())
	assert.Equal(t,
		[]breaks.AcceptedBreak{{Code: "METHOD_REMOVED", OldElement: "m()"}},
		c.ForModule(fooModule).Sorted(breaks.CompareAcceptedBreaks))
}

func TestUpgrade_EmptyDocument(t *testing.T) {
	collections, err := Document{}.Upgrade()
	require.NoError(t, err)
	assert.Empty(t, collections)

	collections, err = Document(nil).Upgrade()
	require.NoError(t, err)
	assert.Empty(t, collections)
}

func TestUpgrade_SameJustificationAcrossModulesMerges(t *testing.T) {
	bar := breaks.GroupAndName{Group: "com.acme", Name: "bar"}
	doc := Document{
		"1.0.0": {
			"com.acme:foo": {{Code: "a", Old: "x", Justification: "cleanup"}},
			"com.acme:bar": {{Code: "b", New: "y", Justification: "cleanup"}},
		},
	}

	collections, err := doc.Upgrade()
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, []breaks.GroupAndName{bar, fooModule}, collections[0].Breaks.Modules())
	assert.True(t, collections[0].ForModule(fooModule).Contains(breaks.AcceptedBreak{Code: "a", OldElement: "x"}))
	assert.True(t, collections[0].ForModule(bar).Contains(breaks.AcceptedBreak{Code: "b", NewElement: "y"}))
}

func TestUpgrade_SplitsByJustificationAndVersion(t *testing.T) {
	doc := Document{
		"1.0.0": {"com.acme:foo": {
			{Code: "a", Justification: "one"},
			{Code: "b", Justification: "two"},
		}},
		"2.0.0": {"com.acme:foo": {
			{Code: "c", Justification: "one"},
		}},
	}

	collections, err := doc.Upgrade()
	require.NoError(t, err)
	require.Len(t, collections, 3)

	var keys []breaks.JustificationAndVersion
	for _, c := range collections {
		keys = append(keys, c.Key())
	}
	assert.Equal(t, []breaks.JustificationAndVersion{
		{Justification: "one", Version: "1.0.0"},
		{Justification: "two", Version: "1.0.0"},
		{Justification: "one", Version: "2.0.0"},
	}, keys)
}

func TestUpgrade_DuplicateEntriesCollapse(t *testing.T) {
	entry := Entry{Code: "a", Old: "x", Justification: "same"}
	doc := Document{"1.0.0": {"com.acme:foo": {entry, entry}}}

	collections, err := doc.Upgrade()
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, 1, collections[0].Count())
}

func TestUpgrade_Inconsistencies(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		version string
		module  string
		index   int
	}{
		{"malformed version", Document{"one.two": {"com.acme:foo": {{Code: "a", Justification: "j"}}}}, "one.two", "", -1},
		{"malformed module", Document{"1.0.0": {"no-colon": {{Code: "a", Justification: "j"}}}}, "1.0.0", "no-colon", -1},
		{"empty justification", Document{"1.0.0": {"com.acme:foo": {{Code: "a"}}}}, "1.0.0", "com.acme:foo", 0},
		{"empty code", Document{"1.0.0": {"com.acme:foo": {{Code: "a", Justification: "j"}, {Justification: "j"}}}}, "1.0.0", "com.acme:foo", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Upgrade()
			require.Error(t, err)

			var migErr *MigrationError
			require.True(t, errors.As(err, &migErr))
			assert.Equal(t, tt.version, migErr.Version)
			assert.Equal(t, tt.module, migErr.Module)
			assert.Equal(t, tt.index, migErr.Index)
		})
	}
}

type row struct {
	key    breaks.JustificationAndVersion
	module breaks.GroupAndName
	brk    breaks.AcceptedBreak
}

func randomDocument(rng *rand.Rand) Document {
	versions := []string{"1.0.0", "1.1.0", "v2.0.0"}
	modules := []string{"com.acme:foo", "com.acme:bar", "org.example:baz"}
	justifications := []string{"intentional", "cleanup", "nobody uses it"}
	codes := []string{"go.removed", "go.renamed", "go.signature_changed"}

	doc := Document{}
	for _, v := range versions {
		if rng.IntN(4) == 0 {
			continue
		}
		doc[v] = map[string][]Entry{}
		for _, m := range modules {
			n := rng.IntN(4)
			for i := 0; i < n; i++ {
				doc[v][m] = append(doc[v][m], Entry{
					Code:          codes[rng.IntN(len(codes))],
					Old:           fmt.Sprintf("E%d", rng.IntN(3)),
					New:           []string{"", "N"}[rng.IntN(2)],
					Justification: justifications[rng.IntN(len(justifications))],
				})
			}
		}
	}
	return doc
}

func TestUpgrade_LosslessProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 300; iter++ {
		doc := randomDocument(rng)

		want := map[row]bool{}
		for v, perModule := range doc {
			for m, entries := range perModule {
				module, err := breaks.ParseGroupAndName(m)
				require.NoError(t, err)
				for _, e := range entries {
					want[row{
						key:    breaks.JustificationAndVersion{Justification: e.Justification, Version: breaks.Version(v)},
						module: module,
						brk:    breaks.AcceptedBreak{Code: e.Code, OldElement: e.Old, NewElement: e.New},
					}] = true
				}
			}
		}

		collections, err := doc.Upgrade()
		require.NoError(t, err)

		got := map[row]int{}
		seenKeys := map[breaks.JustificationAndVersion]int{}
		for _, c := range collections {
			seenKeys[c.Key()]++
			for _, f := range c.Flatten() {
				got[row{key: f.Key, module: f.Module, brk: f.Break}]++
			}
		}

		for k, n := range seenKeys {
			assert.Equal(t, 1, n, "key %s emitted %d times", k, n)
		}
		assert.Len(t, got, len(want))
		for r := range want {
			assert.Equal(t, 1, got[r], "row %+v", r)
		}
	}
}

func TestUpgrade_VersionSpellingsCollapse(t *testing.T) {
	doc := Document{
		"1.2.0":  {"com.acme:foo": {{Code: "a", Justification: "same"}}},
		"v1.2.0": {"com.acme:bar": {{Code: "b", Justification: "same"}}},
	}

	collections, err := doc.Upgrade()
	require.NoError(t, err)
	require.Len(t, collections, 1)

	c := collections[0]
	assert.Equal(t, breaks.Version("1.2.0"), c.AfterVersion)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 1, c.ForModule(breaks.GroupAndName{Group: "com.acme", Name: "bar"}).Len())
	assert.Equal(t, 1, c.ForModule(breaks.GroupAndName{Group: "com.acme", Name: "foo"}).Len())
}
