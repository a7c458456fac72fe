// Package mapping resolves a field-mapping ruleset against parsed source
// rows. A mapping assigns each target (purchase-order) field either a source
// column, a fixed literal, or a once-per-conversion auto-generated literal;
// unmapped targets stay absent and render as blank cells.
package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the directive union. An explicit tag replaces the
// marker-prefix strings ("[고정값: ...]") the legacy UI embedded in source
// field names, which were ambiguous against real column names.
type Kind string

const (
	// Passthrough copies the value of a source column.
	Passthrough Kind = "passthrough"
	// Fixed writes the same literal into every row.
	Fixed Kind = "fixed"
	// Auto writes a literal computed once per conversion, e.g. an order
	// number derived from the current date. Resolution treats it exactly
	// like Fixed.
	Auto Kind = "auto"
)

// Directive tells the resolver where one target field's value comes from.
type Directive struct {
	Kind    Kind   `json:"kind"`
	Source  string `json:"source,omitempty"`
	Literal string `json:"value,omitempty"`
}

// UnmarshalJSON accepts either the tagged object form or a bare string,
// which is shorthand for a passthrough from that source column.
func (d *Directive) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var source string
		if err := json.Unmarshal(data, &source); err != nil {
			return err
		}
		*d = Directive{Kind: Passthrough, Source: source}
		return nil
	}
	type alias Directive
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	switch a.Kind {
	case Passthrough, Fixed, Auto:
	default:
		return fmt.Errorf("unknown mapping directive kind %q", a.Kind)
	}
	*d = Directive(a)
	return nil
}

// FixedValues is a post-hoc override layer: values here always win over
// whatever the mapping spec would produce for the same target field.
type FixedValues map[string]string

// Spec is an ordered set of target field -> directive rules. Iteration
// order is insertion order, which JSON round-trips preserve.
type Spec struct {
	targets    []string
	directives map[string]Directive
}

// NewSpec returns an empty mapping spec.
func NewSpec() *Spec {
	return &Spec{directives: make(map[string]Directive)}
}

// Set adds or replaces the directive for a target field.
func (s *Spec) Set(target string, d Directive) {
	if _, ok := s.directives[target]; !ok {
		s.targets = append(s.targets, target)
	}
	s.directives[target] = d
}

// Get returns the directive for a target field.
func (s *Spec) Get(target string) (Directive, bool) {
	d, ok := s.directives[target]
	return d, ok
}

// Targets returns the target fields in insertion order.
func (s *Spec) Targets() []string {
	if s == nil {
		return nil
	}
	return s.targets
}

// Len returns the number of mapped target fields.
func (s *Spec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.targets)
}

// MarshalJSON emits the spec as a JSON object in insertion order.
func (s *Spec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, target := range s.targets {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(target)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.directives[target])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object of target -> directive, preserving the
// object's key order with a token decoder.
func (s *Spec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("mapping spec must be a JSON object")
	}

	s.targets = nil
	s.directives = make(map[string]Directive)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		target := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var d Directive
		if err := d.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("target %q: %w", target, err)
		}
		s.Set(target, d)
	}
	_, err = dec.Token() // closing brace
	return err
}
