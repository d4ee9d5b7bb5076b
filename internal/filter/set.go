package filter

import "budgetfilter/internal/dimension"

// Set maps fields to selections and remembers insertion order.
// Fields that were never put read as All. A Set is not safe for
// concurrent use.
type Set struct {
	order []dimension.Field
	sel   map[dimension.Field]Selection
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{sel: make(map[dimension.Field]Selection)}
}

// NewSetFor returns a set holding All for each field, in the given order.
func NewSetFor(fields []dimension.Field) *Set {
	s := NewSet()
	s.Reset(fields)
	return s
}

// Put stores sel for field. Replacing an existing field keeps its position.
func (s *Set) Put(field dimension.Field, sel Selection) {
	if _, exists := s.sel[field]; !exists {
		s.order = append(s.order, field)
	}
	s.sel[field] = clone(sel)
}

// Get returns the selection for field, All when absent.
func (s *Set) Get(field dimension.Field) Selection {
	if sel, ok := s.sel[field]; ok {
		return clone(sel)
	}
	return All{}
}

// Has reports whether field was put.
func (s *Set) Has(field dimension.Field) bool {
	_, ok := s.sel[field]
	return ok
}

// Fields returns the fields in insertion order.
func (s *Set) Fields() []dimension.Field {
	return append([]dimension.Field(nil), s.order...)
}

// Len returns the number of fields in the set.
func (s *Set) Len() int {
	return len(s.order)
}

// Each calls fn for every field in insertion order.
func (s *Set) Each(fn func(dimension.Field, Selection)) {
	for _, f := range s.order {
		fn(f, clone(s.sel[f]))
	}
}

// Reset sets every existing field and every field in fields to All.
// Existing positions are kept; new fields are appended.
func (s *Set) Reset(fields []dimension.Field) {
	for _, f := range s.order {
		s.sel[f] = All{}
	}
	for _, f := range fields {
		s.Put(f, All{})
	}
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	c := &Set{
		order: append([]dimension.Field(nil), s.order...),
		sel:   make(map[dimension.Field]Selection, len(s.sel)),
	}
	for f, sel := range s.sel {
		c.sel[f] = clone(sel)
	}
	return c
}

// Active reports whether any field in the set is active.
func (s *Set) Active() bool {
	for _, f := range s.order {
		if Active(s.sel[f]) {
			return true
		}
	}
	return false
}
