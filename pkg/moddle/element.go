// Package moddle defines the document contract consumed from an external BPMN parser:
// an element tree, an id index and a flat list of unresolved reference records.
//
// The JSON shape follows the moddle convention where every element object carries
// its type in a "$type" property.
package moddle

import (
	"encoding/json"
	"strings"
)

// Element is one node of the parsed document tree.
// Attrs holds every property other than id, $type and name. Nested objects are
// *Element values and arrays of objects are []*Element values.
type Element struct {
	ID    string
	Type  string
	Name  string
	Attrs map[string]any
}

// NewElement builds an element. It is mostly useful for tests and adapters.
func NewElement(typ, id, name string, attrs map[string]any) *Element {
	return &Element{ID: id, Type: typ, Name: name, Attrs: attrs}
}

// Get returns the raw attribute value for key.
func (e *Element) Get(key string) any {
	if e == nil || e.Attrs == nil {
		return nil
	}
	return e.Attrs[key]
}

// String returns a string attribute or "" when absent or not a string.
func (e *Element) String(key string) string {
	s, _ := e.Get(key).(string)
	return s
}

// Bool returns a boolean attribute or false when absent.
func (e *Element) Bool(key string) bool {
	b, _ := e.Get(key).(bool)
	return b
}

// Child returns a nested element attribute or nil.
func (e *Element) Child(key string) *Element {
	c, _ := e.Get(key).(*Element)
	return c
}

// Children returns a nested element list attribute or nil.
func (e *Element) Children(key string) []*Element {
	switch v := e.Get(key).(type) {
	case []*Element:
		return v
	case []any:
		out := make([]*Element, 0, len(v))
		for _, item := range v {
			if el, ok := item.(*Element); ok {
				out = append(out, el)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

// Body returns the literal body of an expression wrapper element.
func (e *Element) Body() string {
	return e.String("body")
}

// Fields returns a JSON-native deep copy of Attrs: nested elements become maps
// carrying their "$type", "id" and "name" keys. It returns nil when there are no attrs.
func (e *Element) Fields() map[string]any {
	if e == nil || len(e.Attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(e.Attrs))
	for k, v := range e.Attrs {
		out[k] = Native(v)
	}
	return out
}

func (e *Element) native() map[string]any {
	out := make(map[string]any, len(e.Attrs)+3)
	if e.Type != "" {
		out["$type"] = e.Type
	}
	if e.ID != "" {
		out["id"] = e.ID
	}
	if e.Name != "" {
		out["name"] = e.Name
	}
	for k, v := range e.Attrs {
		out[k] = Native(v)
	}
	return out
}

// Native converts an attribute value into its plain JSON form so it survives an
// encode/decode round trip unchanged. Integers are widened to float64.
func Native(v any) any {
	switch t := v.(type) {
	case *Element:
		if t == nil {
			return nil
		}
		return t.native()
	case []*Element:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = Native(el)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Native(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Native(item)
		}
		return out
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// MarshalJSON encodes the element in moddle form.
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.native())
}

// UnmarshalJSON decodes a moddle element object.
func (e *Element) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = *fromMap(raw)
	return nil
}

func fromMap(raw map[string]any) *Element {
	el := &Element{}
	for k, v := range raw {
		switch k {
		case "$type":
			el.Type, _ = v.(string)
		case "id":
			el.ID, _ = v.(string)
		case "name":
			el.Name, _ = v.(string)
		default:
			if el.Attrs == nil {
				el.Attrs = make(map[string]any)
			}
			el.Attrs[k] = fromValue(v)
		}
	}
	return el
}

func fromValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return fromMap(t)
	case []any:
		if len(t) > 0 && allObjects(t) {
			els := make([]*Element, len(t))
			for i, item := range t {
				els[i] = fromMap(item.(map[string]any))
			}
			return els
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fromValue(item)
		}
		return out
	default:
		return v
	}
}

func allObjects(items []any) bool {
	for _, item := range items {
		if _, ok := item.(map[string]any); !ok {
			return false
		}
	}
	return true
}

// IsRefKey reports whether an attribute name follows the reference naming
// convention: it ends in "Ref" and is not an internal "$" property.
func IsRefKey(key string) bool {
	return len(key) > len("Ref") && strings.HasSuffix(key, "Ref") && !strings.HasPrefix(key, "$")
}

// isReferenceAttr also covers list references and the gateway default flow,
// which moddle stores as a stub of the referenced element.
func isReferenceAttr(key string) bool {
	if key == "default" || IsRefKey(key) {
		return true
	}
	return strings.HasSuffix(key, "Refs") && !strings.HasPrefix(key, "$")
}

// Walk visits el and every element nested in its attributes, depth first.
// Reference-valued attributes are not followed.
func Walk(el *Element, fn func(*Element)) {
	if el == nil {
		return
	}
	fn(el)
	for k, v := range el.Attrs {
		if isReferenceAttr(k) {
			continue
		}
		switch t := v.(type) {
		case *Element:
			Walk(t, fn)
		case []*Element:
			for _, child := range t {
				Walk(child, fn)
			}
		}
	}
}
