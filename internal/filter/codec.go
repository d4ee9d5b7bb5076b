package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"budgetfilter/internal/dimension"
)

// ErrUnknownMode is returned when decoding a selection with an unsupported mode.
var ErrUnknownMode = errors.New("unknown filter mode")

// Wire is the JSON shape of a selection. Only the payload of Mode is read
// on decode; the others are ignored.
type Wire struct {
	Mode   Mode     `json:"mode"`
	Values []string `json:"values,omitempty"`
	Value  string   `json:"value,omitempty"`
	From   string   `json:"from,omitempty"`
	To     string   `json:"to,omitempty"`
}

// ToWire converts sel to its JSON shape.
func ToWire(sel Selection) Wire {
	switch s := sel.(type) {
	case Multiple:
		return Wire{Mode: ModeMultiple, Values: append([]string{}, s.Values...)}
	case Contains:
		return Wire{Mode: ModeContains, Value: s.Text}
	case Range:
		return Wire{Mode: ModeRange, From: s.From, To: s.To}
	}
	return Wire{Mode: ModeAll}
}

// Selection converts w to a selection. An empty mode reads as all.
func (w Wire) Selection() (Selection, error) {
	switch w.Mode {
	case ModeAll, "":
		return All{}, nil
	case ModeMultiple:
		return Multiple{Values: append([]string(nil), w.Values...)}, nil
	case ModeContains:
		return Contains{Text: w.Value}, nil
	case ModeRange:
		return Range{From: w.From, To: w.To}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, string(w.Mode))
}

// MarshalSelection encodes sel as JSON.
func MarshalSelection(sel Selection) ([]byte, error) {
	return json.Marshal(ToWire(sel))
}

// UnmarshalSelection decodes a JSON selection.
func UnmarshalSelection(data []byte) (Selection, error) {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return w.Selection()
}

// MarshalJSON encodes the set as an object whose keys follow insertion order.
func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(f))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(ToWire(s.sel[f]))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeSet reads a JSON object of field -> selection, keeping key order.
// Every key must be registered in registry.
func DecodeSet(data []byte, registry *dimension.Registry) (*Set, error) {
	if registry == nil {
		registry = dimension.Default()
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode filter set: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("decode filter set: expected JSON object")
	}

	set := NewSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode filter set: %w", err)
		}
		name, _ := tok.(string)
		field, err := registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		var w Wire
		if err := dec.Decode(&w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		sel, err := w.Selection()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		set.Put(field, sel)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode filter set: %w", err)
	}
	return set, nil
}
