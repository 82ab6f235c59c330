// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implement a set type as a `map[T]struct{}` but with better ergonomics, and
// an insertion-ordered variant used for duplicate-free op lists.
package sets

// Set implements a Set for the key type T.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// MakeWith creates a Set[T] with the given elements inserted.
func MakeWith[T comparable](elements ...T) Set[T] {
	s := Make[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// HasAny returns true if any of the keys is in the Set.
func (s Set[T]) HasAny(keys ...T) bool {
	for _, key := range keys {
		if s.Has(key) {
			return true
		}
	}
	return false
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Equal returns whether s and s2 have the exact same elements.
func (s Set[T]) Equal(s2 Set[T]) bool {
	if len(s) != len(s2) {
		return false
	}
	for k := range s {
		if !s2.Has(k) {
			return false
		}
	}
	return true
}

// Ordered is a set that remembers the insertion order of its elements.
// Inserting an element already present is a no-op, and doesn't change its position.
//
// The zero value is ready to use.
type Ordered[T comparable] struct {
	index    Set[T]
	elements []T
}

// MakeOrdered returns an Ordered set with the given elements inserted, in order.
func MakeOrdered[T comparable](elements ...T) *Ordered[T] {
	o := &Ordered[T]{}
	o.Insert(elements...)
	return o
}

// Insert appends the keys not yet present, in the order given.
func (o *Ordered[T]) Insert(keys ...T) {
	if o.index == nil {
		o.index = Make[T](len(keys))
	}
	for _, key := range keys {
		if o.index.Has(key) {
			continue
		}
		o.index.Insert(key)
		o.elements = append(o.elements, key)
	}
}

// Has returns true if the key was inserted.
func (o *Ordered[T]) Has(key T) bool {
	return o.index.Has(key)
}

// Len returns the number of elements.
func (o *Ordered[T]) Len() int {
	return len(o.elements)
}

// Elements returns a copy of the elements in insertion order.
func (o *Ordered[T]) Elements() []T {
	out := make([]T, len(o.elements))
	copy(out, o.elements)
	return out
}

// Set returns the elements as an unordered Set. The returned Set must not be modified.
func (o *Ordered[T]) Set() Set[T] {
	if o.index == nil {
		return Make[T]()
	}
	return o.index
}
