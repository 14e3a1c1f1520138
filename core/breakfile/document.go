package breakfile

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// CurrentSchema is the schemaVersion written by this package.
const CurrentSchema = 2

// DefaultPath is where the document lives relative to the project root.
const DefaultPath = ".breakcheck/accepted-breaks.yml"

// OverrideKey names the release of a module whose baseline is overridden.
type OverrideKey struct {
	Module  breaks.GroupAndName
	Version breaks.Version
}

// ParseOverrideKey parses "group:name@version".
func ParseOverrideKey(s string) (OverrideKey, error) {
	module, version, ok := strings.Cut(s, "@")
	if !ok {
		return OverrideKey{}, fmt.Errorf("version override key %q must have the form group:name@version", s)
	}
	g, err := breaks.ParseGroupAndName(module)
	if err != nil {
		return OverrideKey{}, err
	}
	v, err := breaks.ParseVersion(version)
	if err != nil {
		return OverrideKey{}, fmt.Errorf("version override key %q: %w", s, err)
	}
	return OverrideKey{Module: g, Version: v}, nil
}

func (k OverrideKey) String() string {
	return k.Module.String() + "@" + k.Version.String()
}

// Document is the accepted-breaks file in the current schema.
type Document struct {
	// AcceptedBreaks holds at most one collection per (justification, version).
	AcceptedBreaks []breaks.BreakCollection
	// VersionOverrides replaces the baseline release a module is compared
	// against when the usual one cannot be resolved.
	VersionOverrides map[OverrideKey]breaks.Version
	// Migrated is set when the source used the deprecated schema.
	Migrated bool
}

// AcceptedFor returns the breaks accepted for module against baseline.
func (d Document) AcceptedFor(module breaks.GroupAndName, baseline breaks.Version) breaks.Set[breaks.AcceptedBreak] {
	return breaks.AcceptedFor(d.AcceptedBreaks, module, baseline)
}

// VersionOverride returns the replacement baseline for module at version.
func (d Document) VersionOverride(module breaks.GroupAndName, version breaks.Version) (breaks.Version, bool) {
	for k, v := range d.VersionOverrides {
		if k.Module == module && k.Version.Same(version) {
			return v, true
		}
	}
	return "", false
}

// WithAcceptedBreaks returns a copy of d that accepts the given breaks for
// module under (justification, afterVersion), merging into an existing
// collection with the same key.
func (d Document) WithAcceptedBreaks(justification string, afterVersion breaks.Version, module breaks.GroupAndName, accepted ...breaks.AcceptedBreak) (Document, error) {
	perModule, err := breaks.NewPerModule(map[breaks.GroupAndName]breaks.Set[breaks.AcceptedBreak]{
		module: breaks.NewSet(accepted...),
	})
	if err != nil {
		return Document{}, err
	}
	added, err := breaks.NewBreakCollection(justification, afterVersion, perModule)
	if err != nil {
		return Document{}, err
	}

	next := d.clone()
	next.AcceptedBreaks = breaks.MergeCollections(append(next.AcceptedBreaks, added)...)
	return next, nil
}

// WithVersionOverride returns a copy of d that compares module at version
// against replacement instead of its usual baseline.
func (d Document) WithVersionOverride(module breaks.GroupAndName, version, replacement breaks.Version) (Document, error) {
	if !version.Valid() {
		return Document{}, fmt.Errorf("invalid version %q", version)
	}
	if !replacement.Valid() {
		return Document{}, fmt.Errorf("invalid replacement version %q", replacement)
	}
	next := d.clone()
	for k := range next.VersionOverrides {
		if k.Module == module && k.Version.Same(version) {
			delete(next.VersionOverrides, k)
		}
	}
	next.VersionOverrides[OverrideKey{Module: module, Version: version}] = replacement
	return next, nil
}

func (d Document) clone() Document {
	overrides := make(map[OverrideKey]breaks.Version, len(d.VersionOverrides))
	maps.Copy(overrides, d.VersionOverrides)
	return Document{
		AcceptedBreaks:   slices.Clone(d.AcceptedBreaks),
		VersionOverrides: overrides,
		Migrated:         d.Migrated,
	}
}
