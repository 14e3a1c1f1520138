package breaks

import (
	"fmt"
	"slices"
	"strings"
)

// BreakCollection is the unit of the current accepted-breaks schema: breaks
// accepted for one justification after one release, indexed by module.
type BreakCollection struct {
	Justification string
	AfterVersion  Version
	Breaks        PerModule[Set[AcceptedBreak]]
}

// NewBreakCollection validates its arguments and returns the collection.
func NewBreakCollection(justification string, afterVersion Version, breaks PerModule[Set[AcceptedBreak]]) (BreakCollection, error) {
	c := BreakCollection{Justification: justification, AfterVersion: afterVersion, Breaks: breaks}
	if err := c.Validate(); err != nil {
		return BreakCollection{}, err
	}
	return c, nil
}

// Key returns the (justification, version) pair that identifies c.
func (c BreakCollection) Key() JustificationAndVersion {
	return JustificationAndVersion{Justification: c.Justification, Version: c.AfterVersion}
}

// Validate checks that c can be persisted: a non-empty justification, a
// well formed version and breaks with codes.
func (c BreakCollection) Validate() error {
	if strings.TrimSpace(c.Justification) == "" {
		return fmt.Errorf("break collection after %s has an empty justification", c.AfterVersion)
	}
	if !c.AfterVersion.Valid() {
		return fmt.Errorf("break collection %s: invalid version %q", c.Key(), c.AfterVersion)
	}
	for module, set := range c.Breaks.All() {
		for b := range set.All() {
			if err := b.Validate(); err != nil {
				return fmt.Errorf("break collection %s, module %s: %w", c.Key(), module, err)
			}
		}
	}
	return nil
}

// ForModule returns the breaks accepted for module, or an empty set.
func (c BreakCollection) ForModule(module GroupAndName) Set[AcceptedBreak] {
	if set, ok := c.Breaks.Get(module); ok {
		return set
	}
	return NewSet[AcceptedBreak]()
}

// WithBreaks returns a copy of c that also accepts the given breaks for module.
func (c BreakCollection) WithBreaks(module GroupAndName, accepted ...AcceptedBreak) (BreakCollection, error) {
	extra, err := NewPerModule(map[GroupAndName]Set[AcceptedBreak]{module: NewSet(accepted...)})
	if err != nil {
		return BreakCollection{}, err
	}
	c.Breaks = UnionPerModule(c.Breaks, extra)
	return c, nil
}

// Count returns the total number of accepted breaks across modules.
func (c BreakCollection) Count() int {
	n := 0
	for _, set := range c.Breaks.All() {
		n += set.Len()
	}
	return n
}

// Equal reports whether c and o have the same key and the same breaks.
func (c BreakCollection) Equal(o BreakCollection) bool {
	return c.Key().Same(o.Key()) && EqualSets(c.Breaks, o.Breaks)
}

// Flatten denormalizes c into one row per (module, break).
func (c BreakCollection) Flatten() []FlattenedBreak {
	var rows []FlattenedBreak
	key := c.Key()
	for module, set := range c.Breaks.All() {
		for _, b := range set.Sorted(CompareAcceptedBreaks) {
			rows = append(rows, FlattenedBreak{Key: key, Module: module, Break: b})
		}
	}
	return rows
}

// FlattenedBreak is a fully denormalized accepted break. It exists only
// while collections are being regrouped and is never persisted.
type FlattenedBreak struct {
	Key    JustificationAndVersion
	Module GroupAndName
	Break  AcceptedBreak
}

// CollectionsFromRows groups flattened rows into one collection per
// (justification, version) key, sorted by key. Versions are compared
// semantically; a collection keeps the version spelling of its first row.
func CollectionsFromRows(rows []FlattenedBreak) ([]BreakCollection, error) {
	byKey := make(map[JustificationAndVersion][]FlattenedBreak)
	spelling := make(map[JustificationAndVersion]JustificationAndVersion)
	for _, row := range rows {
		canonical := row.Key.Canonical()
		if _, ok := spelling[canonical]; !ok {
			spelling[canonical] = row.Key
		}
		byKey[canonical] = append(byKey[canonical], row)
	}

	out := make([]BreakCollection, 0, len(byKey))
	for canonical, group := range byKey {
		key := spelling[canonical]
		perModule, err := GroupBy(group,
			func(r FlattenedBreak) GroupAndName { return r.Module },
			func(r FlattenedBreak) AcceptedBreak { return r.Break })
		if err != nil {
			return nil, fmt.Errorf("grouping breaks for %s: %w", key, err)
		}
		out = append(out, BreakCollection{
			Justification: key.Justification,
			AfterVersion:  key.Version,
			Breaks:        perModule,
		})
	}
	SortCollections(out)
	return out, nil
}

// MergeCollections enforces that at most one collection exists per key:
// collections sharing a key are merged by taking the union of their breaks.
// Versions are compared semantically, and the merged collection keeps the
// version spelling of the first collection in the argument list. The result
// is sorted by key.
func MergeCollections(collections ...BreakCollection) []BreakCollection {
	byKey := make(map[JustificationAndVersion]BreakCollection, len(collections))
	for _, c := range collections {
		canonical := c.Key().Canonical()
		if prev, ok := byKey[canonical]; ok {
			prev.Breaks = UnionPerModule(prev.Breaks, c.Breaks)
			byKey[canonical] = prev
			continue
		}
		byKey[canonical] = c
	}

	out := make([]BreakCollection, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, c)
	}
	SortCollections(out)
	return out
}

// SortCollections orders collections by version, then justification.
func SortCollections(collections []BreakCollection) {
	slices.SortFunc(collections, func(a, b BreakCollection) int {
		return a.Key().Compare(b.Key())
	})
}

// AcceptedFor returns every break accepted for module by collections whose
// version boundary is the baseline release being compared against.
func AcceptedFor(collections []BreakCollection, module GroupAndName, baseline Version) Set[AcceptedBreak] {
	out := NewSet[AcceptedBreak]()
	for _, c := range collections {
		if !c.AfterVersion.Same(baseline) {
			continue
		}
		out = out.Union(c.ForModule(module))
	}
	return out
}
