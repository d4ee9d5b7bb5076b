// Package dimension holds the static registry of filterable dimension fields
// and the query contexts each one applies to.
package dimension

import (
	"fmt"
	"strings"
)

const (
	Node    Field = "node"
	Parent  Field = "parent"
	Dept    Field = "dept"
	Fund    Field = "fund"
	Account Field = "account"
)

const (
	Revenue Context = "revenue"
	Expense Context = "expense"
)

type (
	// Field identifies a dimension a user can filter on.
	Field string

	// Context is a query context with its own subset of applicable fields.
	Context string

	// Option is a selectable value for a field.
	Option struct {
		Code  string `json:"code"`
		Label string `json:"label"`
	}

	entry struct {
		column  string
		revenue bool
		expense bool
	}

	// Registry maps fields to backend columns and context membership.
	// It is read-only after construction.
	Registry struct {
		order   []Field
		entries map[Field]entry
		byCtx   map[Context][]Field
	}
)

// UnknownFieldError is returned when a field is not registered.
type UnknownFieldError struct {
	Field Field
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown dimension field %q", string(e.Field))
}

func (f Field) String() string { return string(f) }

func (c Context) String() string { return string(c) }

// IsValid reports whether c is a known context.
func (c Context) IsValid() bool {
	return c == Revenue || c == Expense
}

// Contexts returns the known contexts in publication order.
func Contexts() []Context {
	return []Context{Revenue, Expense}
}

var defaultRegistry = NewRegistry(
	Definition{Field: Node, Column: "node_code", Expense: true},
	Definition{Field: Parent, Column: "parent_code", Revenue: true, Expense: true},
	Definition{Field: Dept, Column: "dept_code", Expense: true},
	Definition{Field: Fund, Column: "fund_code", Revenue: true, Expense: true},
	Definition{Field: Account, Column: "account_code", Revenue: true, Expense: true},
)

// Default returns the registry for the budget dimensions.
func Default() *Registry {
	return defaultRegistry
}

// Definition describes one registered field.
type Definition struct {
	Field   Field
	Column  string
	Revenue bool
	Expense bool
}

// NewRegistry builds a registry; definition order fixes the order of
// Fields and FieldsFor. Later duplicates replace earlier ones in place.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{
		entries: make(map[Field]entry, len(defs)),
		byCtx:   make(map[Context][]Field, 2),
	}
	for _, d := range defs {
		if _, exists := r.entries[d.Field]; !exists {
			r.order = append(r.order, d.Field)
		}
		r.entries[d.Field] = entry{column: d.Column, revenue: d.Revenue, expense: d.Expense}
	}
	for _, f := range r.order {
		e := r.entries[f]
		if e.revenue {
			r.byCtx[Revenue] = append(r.byCtx[Revenue], f)
		}
		if e.expense {
			r.byCtx[Expense] = append(r.byCtx[Expense], f)
		}
	}
	return r
}

// ResolveColumn returns the backend column for field.
func (r *Registry) ResolveColumn(field Field) (string, error) {
	e, ok := r.entries[field]
	if !ok {
		return "", &UnknownFieldError{Field: field}
	}
	return e.column, nil
}

// FieldsFor returns the fields applicable to ctx in registry order.
// The returned slice is a copy.
func (r *Registry) FieldsFor(ctx Context) []Field {
	return append([]Field(nil), r.byCtx[ctx]...)
}

// AppliesTo reports whether field contributes to ctx.
func (r *Registry) AppliesTo(field Field, ctx Context) bool {
	e, ok := r.entries[field]
	if !ok {
		return false
	}
	switch ctx {
	case Revenue:
		return e.revenue
	case Expense:
		return e.expense
	}
	return false
}

// Fields returns every registered field in registry order.
func (r *Registry) Fields() []Field {
	return append([]Field(nil), r.order...)
}

// Has reports whether field is registered.
func (r *Registry) Has(field Field) bool {
	_, ok := r.entries[field]
	return ok
}

// Lookup parses user input into a registered field.
func (r *Registry) Lookup(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	if !r.Has(f) {
		return "", &UnknownFieldError{Field: f}
	}
	return f, nil
}
