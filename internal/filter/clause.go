package filter

import "strings"

// Conjunction prefixes every rendered clause, including the first one.
// Callers append the fragment after their own base predicate.
const Conjunction = " and "

const (
	OpEquals  Operator = "="
	OpIn      Operator = "in"
	OpLike    Operator = "like"
	OpBetween Operator = "between"
)

// Operator is the comparison a clause applies to its column.
type Operator string

// Clause is one structured predicate before serialization.
type Clause struct {
	Column   string
	Operator Operator
	Literals []string
}

// Builder accumulates clauses in order.
type Builder struct {
	clauses []Clause
}

// Equals appends column = literal.
func (b *Builder) Equals(column, literal string) *Builder {
	return b.add(column, OpEquals, literal)
}

// In appends a membership clause over literals.
func (b *Builder) In(column string, literals []string) *Builder {
	return b.add(column, OpIn, literals...)
}

// Like appends a pattern match with wildcards on both sides of text.
func (b *Builder) Like(column, text string) *Builder {
	return b.add(column, OpLike, "%"+text+"%")
}

// Between appends an inclusive bounds clause.
func (b *Builder) Between(column, from, to string) *Builder {
	return b.add(column, OpBetween, from, to)
}

func (b *Builder) add(column string, op Operator, literals ...string) *Builder {
	b.clauses = append(b.clauses, Clause{
		Column:   column,
		Operator: op,
		Literals: append([]string(nil), literals...),
	})
	return b
}

// Clauses returns a copy of the accumulated clauses.
func (b *Builder) Clauses() []Clause {
	return append([]Clause(nil), b.clauses...)
}

// Len returns the number of accumulated clauses.
func (b *Builder) Len() int {
	return len(b.clauses)
}

// Render serializes the clauses with r.
func (b *Builder) Render(r Renderer) (string, []any) {
	if r == nil {
		r = VerbatimRenderer{}
	}
	return r.Render(b.clauses)
}

// Renderer turns clauses into fragment text plus bind arguments.
type Renderer interface {
	Render(clauses []Clause) (string, []any)
}

// VerbatimRenderer embeds literals in single quotes without escaping.
// A literal containing a quote corrupts the fragment; downstream consumers
// expect exactly this shape.
type VerbatimRenderer struct{}

func (VerbatimRenderer) Render(clauses []Clause) (string, []any) {
	return render(clauses, func(lit string) string { return "'" + lit + "'" }), nil
}

// ParamRenderer emits a "?" placeholder per literal and returns the
// literals as bind arguments.
type ParamRenderer struct{}

func (ParamRenderer) Render(clauses []Clause) (string, []any) {
	args := []any{}
	text := render(clauses, func(lit string) string {
		args = append(args, lit)
		return "?"
	})
	return text, args
}

func render(clauses []Clause, literal func(string) string) string {
	var sb strings.Builder
	for _, c := range clauses {
		sb.WriteString(Conjunction)
		sb.WriteString(c.Column)
		sb.WriteByte(' ')
		switch c.Operator {
		case OpIn:
			sb.WriteString("in (")
			for i, lit := range c.Literals {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(literal(lit))
			}
			sb.WriteByte(')')
		case OpBetween:
			sb.WriteString("between ")
			sb.WriteString(literal(c.Literals[0]))
			sb.WriteString(" and ")
			sb.WriteString(literal(c.Literals[1]))
		default:
			sb.WriteString(string(c.Operator))
			sb.WriteByte(' ')
			sb.WriteString(literal(c.Literals[0]))
		}
	}
	return sb.String()
}
