// Package legacy reads the deprecated accepted-breaks schema and upgrades it
// to break collections.
//
// The deprecated schema is keyed first by the release a break was accepted
// against, then by module, and carries the justification on every break:
//
//	"1.2.0":
//	  com.acme:foo:
//	  - code: go.removed
//	    old: com.acme/foo.M ()
//	    justification: intentional
//
// The current schema turns that inside out and groups by justification and
// version. Nothing outside this package sees the legacy shape.
package legacy

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// Entry is one accepted break in the deprecated schema.
type Entry struct {
	Code          string `yaml:"code" json:"code"`
	Old           string `yaml:"old,omitempty" json:"old,omitempty"`
	New           string `yaml:"new,omitempty" json:"new,omitempty"`
	Justification string `yaml:"justification" json:"justification"`
}

// Document is the deprecated schema: version -> "group:name" -> entries.
type Document map[string]map[string][]Entry

// MigrationError reports legacy data that cannot be mapped onto the current
// schema without losing information.
type MigrationError struct {
	Version string
	Module  string
	Index   int
	Reason  string
}

func (e *MigrationError) Error() string {
	var where []string
	if e.Version != "" {
		where = append(where, "version "+e.Version)
	}
	if e.Module != "" {
		where = append(where, "module "+e.Module)
	}
	if e.Index >= 0 {
		where = append(where, fmt.Sprintf("entry %d", e.Index))
	}
	return fmt.Sprintf("cannot migrate accepted breaks (%s): %s", strings.Join(where, ", "), e.Reason)
}

// Flatten expands d into one row per accepted break, keyed by the entry's
// justification and the version it was declared under. Rows come out in
// version, module and declaration order.
func (d Document) Flatten() ([]breaks.FlattenedBreak, error) {
	var rows []breaks.FlattenedBreak
	for _, rawVersion := range slices.Sorted(maps.Keys(d)) {
		version, err := breaks.ParseVersion(rawVersion)
		if err != nil {
			return nil, &MigrationError{Version: rawVersion, Index: -1, Reason: err.Error()}
		}

		perModule := d[rawVersion]
		for _, rawModule := range slices.Sorted(maps.Keys(perModule)) {
			module, err := breaks.ParseGroupAndName(rawModule)
			if err != nil {
				return nil, &MigrationError{Version: rawVersion, Module: rawModule, Index: -1, Reason: err.Error()}
			}

			for i, entry := range perModule[rawModule] {
				row, err := entry.flatten(version, module)
				if err != nil {
					return nil, &MigrationError{Version: rawVersion, Module: rawModule, Index: i, Reason: err.Error()}
				}
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

func (e Entry) flatten(version breaks.Version, module breaks.GroupAndName) (breaks.FlattenedBreak, error) {
	if strings.TrimSpace(e.Justification) == "" {
		return breaks.FlattenedBreak{}, fmt.Errorf("justification is empty")
	}
	accepted := breaks.AcceptedBreak{Code: e.Code, OldElement: e.Old, NewElement: e.New}
	if err := accepted.Validate(); err != nil {
		return breaks.FlattenedBreak{}, err
	}
	return breaks.FlattenedBreak{
		Key:    breaks.JustificationAndVersion{Justification: e.Justification, Version: version},
		Module: module,
		Break:  accepted,
	}, nil
}

// Upgrade converts d into break collections: one per distinct
// (justification, version) pair, holding every module that accepted a break
// under that pair. Entries with identical justification text and version
// merge even when they were declared for different modules, and "1.2.0" and
// "v1.2.0" count as the same version. An empty
// document upgrades to no collections.
func (d Document) Upgrade() ([]breaks.BreakCollection, error) {
	rows, err := d.Flatten()
	if err != nil {
		return nil, err
	}
	return breaks.CollectionsFromRows(rows)
}
