package filter

import "budgetfilter/internal/dimension"

// allLiteral is the value the backend treats as "no restriction".
const allLiteral = "all"

// Compiler turns a Set into a criteria fragment for one context's fields.
// It holds no mutable state and is safe for concurrent use.
type Compiler struct {
	registry *dimension.Registry
	renderer Renderer
}

// NewCompiler returns a compiler over registry. A nil renderer means
// VerbatimRenderer.
func NewCompiler(registry *dimension.Registry, renderer Renderer) *Compiler {
	if registry == nil {
		registry = dimension.Default()
	}
	if renderer == nil {
		renderer = VerbatimRenderer{}
	}
	return &Compiler{registry: registry, renderer: renderer}
}

// Build walks set in insertion order and collects one clause per field that
// is part of contextFields and whose selection is complete. Context fields
// the set does not hold read as All and follow in contextFields order.
// Incomplete selections and fields the registry does not know contribute
// nothing.
func (c *Compiler) Build(set *Set, contextFields []dimension.Field) *Builder {
	include := make(map[dimension.Field]struct{}, len(contextFields))
	for _, f := range contextFields {
		include[f] = struct{}{}
	}
	if set == nil {
		set = NewSet()
	}

	b := &Builder{}
	set.Each(func(field dimension.Field, sel Selection) {
		if _, ok := include[field]; ok {
			c.add(b, field, sel)
		}
	})
	for _, field := range contextFields {
		if set.Has(field) {
			continue
		}
		// listed twice in contextFields
		if _, pending := include[field]; !pending {
			continue
		}
		delete(include, field)
		c.add(b, field, All{})
	}
	return b
}

func (c *Compiler) add(b *Builder, field dimension.Field, sel Selection) {
	column, err := c.registry.ResolveColumn(field)
	if err != nil {
		return
	}
	switch s := sel.(type) {
	case All:
		b.Equals(column, allLiteral)
	case Multiple:
		if len(s.Values) > 0 {
			b.In(column, s.Values)
		}
	case Contains:
		if s.Text != "" {
			b.Like(column, s.Text)
		}
	case Range:
		if s.From != "" && s.To != "" {
			b.Between(column, s.From, s.To)
		}
	}
}

// Compile renders the fragment for contextFields.
func (c *Compiler) Compile(set *Set, contextFields []dimension.Field) (string, []any) {
	return c.Build(set, contextFields).Render(c.renderer)
}

// CompileContext renders the fragment for the registry's fields of ctx.
func (c *Compiler) CompileContext(set *Set, ctx dimension.Context) (string, []any) {
	return c.Compile(set, c.registry.FieldsFor(ctx))
}

// Compile renders the verbatim fragment for contextFields.
func Compile(set *Set, contextFields []dimension.Field, registry *dimension.Registry) string {
	text, _ := NewCompiler(registry, VerbatimRenderer{}).Compile(set, contextFields)
	return text
}

// CompileParams renders a placeholder fragment and its bind arguments.
func CompileParams(set *Set, contextFields []dimension.Field, registry *dimension.Registry) (string, []any) {
	return NewCompiler(registry, ParamRenderer{}).Compile(set, contextFields)
}
