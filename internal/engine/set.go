package engine

import "sort"

// Set is a set of question ids
type Set map[int]struct{}

// NewSet builds a set from ids
func NewSet(ids ...int) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership
func (s Set) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id
func (s Set) Add(id int) {
	s[id] = struct{}{}
}

// Sorted returns the ids in ascending order
func (s Set) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clone copies the set
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Equal reports whether both sets hold the same ids
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}
