package breaks

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// PerModule maps module identities to values. Keys are unique and never the
// zero identity.
type PerModule[T any] struct {
	m map[GroupAndName]T
}

// NewPerModule copies m into a PerModule. The zero identity is rejected.
func NewPerModule[T any](m map[GroupAndName]T) (PerModule[T], error) {
	out := make(map[GroupAndName]T, len(m))
	for k, v := range m {
		if k.IsZero() {
			return PerModule[T]{}, fmt.Errorf("per-module index cannot hold an empty module identity")
		}
		out[k] = v
	}
	return PerModule[T]{m: out}, nil
}

// Get returns the value for module and whether one is present.
func (p PerModule[T]) Get(module GroupAndName) (T, bool) {
	v, ok := p.m[module]
	return v, ok
}

// Len returns the number of modules.
func (p PerModule[T]) Len() int {
	return len(p.m)
}

// Modules returns the module identities in sorted order.
func (p PerModule[T]) Modules() []GroupAndName {
	return slices.SortedFunc(maps.Keys(p.m), GroupAndName.Compare)
}

// All iterates over the entries in module order.
func (p PerModule[T]) All() iter.Seq2[GroupAndName, T] {
	return func(yield func(GroupAndName, T) bool) {
		for _, k := range p.Modules() {
			if !yield(k, p.m[k]) {
				return
			}
		}
	}
}

// Map transforms every value of p with f, keeping the keys.
func Map[T, U any](p PerModule[T], f func(T) U) PerModule[U] {
	out := make(map[GroupAndName]U, len(p.m))
	for k, v := range p.m {
		out[k] = f(v)
	}
	return PerModule[U]{m: out}
}

// GroupBy builds a per-module index from a flat sequence. Each value is
// keyed by keyOf and converted by transform; converted values that share a
// module collapse into one set. A value whose key is the zero identity is
// rejected rather than merged with other unkeyed values.
func GroupBy[V any, W comparable](values []V, keyOf func(V) GroupAndName, transform func(V) W) (PerModule[Set[W]], error) {
	acc := make(map[GroupAndName]map[W]struct{})
	for i, v := range values {
		key := keyOf(v)
		if key.IsZero() {
			return PerModule[Set[W]]{}, fmt.Errorf("grouping element %d: no module identity", i)
		}
		bucket, ok := acc[key]
		if !ok {
			bucket = make(map[W]struct{})
			acc[key] = bucket
		}
		bucket[transform(v)] = struct{}{}
	}

	out := make(map[GroupAndName]Set[W], len(acc))
	for k, bucket := range acc {
		out[k] = Set[W]{m: bucket}
	}
	return PerModule[Set[W]]{m: out}, nil
}

// UnionPerModule merges two indexes of sets; modules present in both get the
// union of their sets.
func UnionPerModule[W comparable](a, b PerModule[Set[W]]) PerModule[Set[W]] {
	out := make(map[GroupAndName]Set[W], len(a.m)+len(b.m))
	for k, v := range a.m {
		out[k] = v
	}
	for k, v := range b.m {
		if prev, ok := out[k]; ok {
			out[k] = prev.Union(v)
			continue
		}
		out[k] = v
	}
	return PerModule[Set[W]]{m: out}
}

// EqualSets reports whether two indexes of sets hold the same modules with
// equal sets.
func EqualSets[W comparable](a, b PerModule[Set[W]]) bool {
	if len(a.m) != len(b.m) {
		return false
	}
	for k, av := range a.m {
		bv, ok := b.m[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}
