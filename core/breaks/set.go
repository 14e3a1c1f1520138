package breaks

import (
	"iter"
	"maps"
	"slices"
)

// Set is an immutable set of comparable values.
type Set[T comparable] struct {
	m map[T]struct{}
}

// NewSet returns a set holding items; duplicates collapse.
func NewSet[T comparable](items ...T) Set[T] {
	m := make(map[T]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return Set[T]{m: m}
}

// Len returns the number of distinct elements.
func (s Set[T]) Len() int {
	return len(s.m)
}

// Contains reports whether v is a member of s.
func (s Set[T]) Contains(v T) bool {
	_, ok := s.m[v]
	return ok
}

// All iterates over the elements in no particular order.
func (s Set[T]) All() iter.Seq[T] {
	return maps.Keys(s.m)
}

// Sorted returns the elements ordered by cmp.
func (s Set[T]) Sorted(cmp func(a, b T) int) []T {
	return slices.SortedFunc(maps.Keys(s.m), cmp)
}

// Union returns a new set with the elements of s and o.
func (s Set[T]) Union(o Set[T]) Set[T] {
	m := make(map[T]struct{}, len(s.m)+len(o.m))
	for v := range s.m {
		m[v] = struct{}{}
	}
	for v := range o.m {
		m[v] = struct{}{}
	}
	return Set[T]{m: m}
}

// Equal reports whether s and o hold the same elements.
func (s Set[T]) Equal(o Set[T]) bool {
	if len(s.m) != len(o.m) {
		return false
	}
	for v := range s.m {
		if _, ok := o.m[v]; !ok {
			return false
		}
	}
	return true
}
