// Package filter models per-dimension filter selections and compiles them
// into SQL-like criteria fragments for a query context.
package filter

const (
	ModeAll      Mode = "all"
	ModeMultiple Mode = "multiple"
	ModeContains Mode = "contains"
	ModeRange    Mode = "range"
)

// Mode is the filtering strategy applied to one field.
type Mode string

// IsValid reports whether m is one of the known modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeAll, ModeMultiple, ModeContains, ModeRange:
		return true
	}
	return false
}

// Selection is the state of one field. Each mode carries only its own
// payload, so a contains selection can never hold stale range bounds.
type Selection interface {
	Mode() Mode
	isSelection()
}

type (
	// All applies no restriction.
	All struct{}

	// Multiple restricts the field to the listed option codes, in selection order.
	Multiple struct {
		Values []string
	}

	// Contains restricts the field to values containing Text.
	Contains struct {
		Text string
	}

	// Range restricts the field to the inclusive bounds From..To.
	Range struct {
		From string
		To   string
	}
)

func (All) Mode() Mode      { return ModeAll }
func (Multiple) Mode() Mode { return ModeMultiple }
func (Contains) Mode() Mode { return ModeContains }
func (Range) Mode() Mode    { return ModeRange }

func (All) isSelection()      {}
func (Multiple) isSelection() {}
func (Contains) isSelection() {}
func (Range) isSelection()    {}

// Active reports whether sel narrows its field: it is not All and carries a
// non-empty payload. A range with a single bound counts as active even
// though it compiles to no clause.
func Active(sel Selection) bool {
	switch s := sel.(type) {
	case Multiple:
		return len(s.Values) > 0
	case Contains:
		return s.Text != ""
	case Range:
		return s.From != "" || s.To != ""
	}
	return false
}

func clone(sel Selection) Selection {
	if m, ok := sel.(Multiple); ok {
		return Multiple{Values: append([]string(nil), m.Values...)}
	}
	if sel == nil {
		return All{}
	}
	return sel
}
