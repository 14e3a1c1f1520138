package astdiff

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/emenda-labs/breakcheck/core/changespec"
	"github.com/emenda-labs/breakcheck/drivers/golang/symbols"
)

// symbolKey uniquely identifies a symbol within a module.
type symbolKey struct {
	pkg  string
	kind symbols.SymbolKind
	name string // "Receiver.Method" for members
}

func keyOf(s symbols.Symbol) symbolKey {
	return symbolKey{pkg: s.Package, kind: s.Kind, name: s.Name}
}

func compareKeys(a, b symbolKey) int {
	return cmp.Or(cmp.Compare(a.pkg, b.pkg), cmp.Compare(a.name, b.name), cmp.Compare(a.kind, b.kind))
}

// differ matches old symbols to new ones in successive passes. Each pass
// only considers symbols no earlier pass has matched.
type differ struct {
	old, new   map[symbolKey]symbols.Symbol
	matchedOld map[symbolKey]bool
	matchedNew map[symbolKey]bool
	changes    []changespec.Change
}

// DiffExports returns the breaking changes from old to new, ordered by
// package and symbol. Added symbols are not breaking and are not reported.
func DiffExports(old, new symbols.Symbols) []changespec.Change {
	d := &differ{
		old:        index(old),
		new:        index(new),
		matchedOld: make(map[symbolKey]bool),
		matchedNew: make(map[symbolKey]bool),
	}
	d.unchanged()
	d.changed()
	d.changedKind()
	renamedTypes := d.renamed()
	d.renamedMembers(renamedTypes)
	d.removed()

	slices.SortFunc(d.changes, func(a, b changespec.Change) int {
		return cmp.Or(
			cmp.Compare(a.Package, b.Package),
			cmp.Compare(a.Symbol, b.Symbol),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
	return d.changes
}

func index(s symbols.Symbols) map[symbolKey]symbols.Symbol {
	m := make(map[symbolKey]symbols.Symbol, len(s.Entries))
	for _, sym := range s.Entries {
		m[keyOf(sym)] = sym
	}
	return m
}

func (d *differ) match(oldKey, newKey symbolKey) {
	d.matchedOld[oldKey] = true
	d.matchedNew[newKey] = true
}

func (d *differ) emit(kind changespec.ChangeKind, oldSym, newSym symbols.Symbol) {
	c := changespec.Change{
		Kind:         kind,
		Symbol:       oldSym.Name,
		Package:      oldSym.Package,
		OldSignature: oldSym.Signature,
	}
	switch kind {
	case changespec.ChangeKindRemoved:
	case changespec.ChangeKindRenamed:
		c.NewName = newSym.Name
		c.NewSignature = newSym.Signature
	default:
		c.NewSignature = newSym.Signature
	}
	d.changes = append(d.changes, c)
}

func unmatched(m map[symbolKey]symbols.Symbol, matched map[symbolKey]bool) []symbolKey {
	var keys []symbolKey
	for _, k := range slices.SortedFunc(maps.Keys(m), compareKeys) {
		if !matched[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// unchanged consumes symbols present on both sides with the same signature.
func (d *differ) unchanged() {
	for key, o := range d.old {
		if n, ok := d.new[key]; ok && n.Signature == o.Signature {
			d.match(key, key)
		}
	}
}

// changed reports symbols kept under the same name and kind whose
// signature differs.
func (d *differ) changed() {
	for _, key := range unmatched(d.old, d.matchedOld) {
		n, ok := d.new[key]
		if !ok {
			continue
		}
		kind := changespec.ChangeKindSignatureChanged
		if key.kind.IsType() {
			kind = changespec.ChangeKindTypeChanged
		}
		d.emit(kind, d.old[key], n)
		d.match(key, key)
	}
}

// changedKind reports names kept in a package but redeclared as another
// kind, such as a var that became a func or a struct that became an
// interface.
func (d *differ) changedKind() {
	type nameKey struct{ pkg, name string }
	added := make(map[nameKey]symbolKey)
	for _, key := range unmatched(d.new, d.matchedNew) {
		added[nameKey{key.pkg, key.name}] = key
	}
	for _, key := range unmatched(d.old, d.matchedOld) {
		newKey, ok := added[nameKey{key.pkg, key.name}]
		if !ok {
			continue
		}
		d.emit(changespec.ChangeKindTypeChanged, d.old[key], d.new[newKey])
		d.match(key, newKey)
		delete(added, nameKey{key.pkg, key.name})
	}
}

// renamed pairs a removed and an added symbol of the same package and kind
// when they are the only ones sharing a non-trivial signature. It returns
// the renamed types, old name to new name, per package.
func (d *differ) renamed() map[string]map[string]string {
	type sigKey struct {
		pkg  string
		kind symbols.SymbolKind
		sig  string
	}
	group := func(m map[symbolKey]symbols.Symbol, matched map[symbolKey]bool) map[sigKey][]symbolKey {
		out := make(map[sigKey][]symbolKey)
		for _, key := range unmatched(m, matched) {
			sig := m[key].Signature
			if sig == "" || sig == "()" || sig == "struct{}" || sig == "interface{}" {
				continue
			}
			sk := sigKey{key.pkg, key.kind, sig}
			out[sk] = append(out[sk], key)
		}
		return out
	}

	removed := group(d.old, d.matchedOld)
	added := group(d.new, d.matchedNew)

	renamedTypes := make(map[string]map[string]string)
	for _, sk := range slices.SortedFunc(maps.Keys(removed), func(a, b sigKey) int {
		return cmp.Or(cmp.Compare(a.pkg, b.pkg), cmp.Compare(a.kind, b.kind), cmp.Compare(a.sig, b.sig))
	}) {
		oldKeys, newKeys := removed[sk], added[sk]
		if len(oldKeys) != 1 || len(newKeys) != 1 {
			continue
		}
		o, n := d.old[oldKeys[0]], d.new[newKeys[0]]
		d.emit(changespec.ChangeKindRenamed, o, n)
		d.match(oldKeys[0], newKeys[0])

		if sk.kind.IsType() {
			if renamedTypes[o.Package] == nil {
				renamedTypes[o.Package] = make(map[string]string)
			}
			renamedTypes[o.Package][o.Name] = n.Name
		}
	}
	return renamedTypes
}

// renamedMembers follows methods and fields of renamed types to the
// same-named member of the new type.
func (d *differ) renamedMembers(renamedTypes map[string]map[string]string) {
	if len(renamedTypes) == 0 {
		return
	}
	for _, key := range unmatched(d.old, d.matchedOld) {
		if !key.kind.IsMember() {
			continue
		}
		parent, member, ok := strings.Cut(key.name, ".")
		if !ok {
			continue
		}
		newParent, ok := renamedTypes[key.pkg][parent]
		if !ok {
			continue
		}
		newKey := symbolKey{pkg: key.pkg, kind: key.kind, name: newParent + "." + member}
		n, ok := d.new[newKey]
		if !ok || d.matchedNew[newKey] {
			continue
		}

		o := d.old[key]
		if o.Signature == n.Signature {
			d.emit(changespec.ChangeKindRenamed, o, n)
		} else {
			d.emit(changespec.ChangeKindSignatureChanged, o, n)
		}
		d.match(key, newKey)
	}
}

// removed reports every old symbol left unmatched.
func (d *differ) removed() {
	for _, key := range unmatched(d.old, d.matchedOld) {
		d.emit(changespec.ChangeKindRemoved, d.old[key], symbols.Symbol{})
	}
}
