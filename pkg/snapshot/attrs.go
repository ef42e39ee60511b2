package snapshot

import (
	"bytes"
	"encoding/json"
)

// AttrPair is one ordered attribute. Value is a string, a number, or
// the boolean true for value-less boolean attributes.
type AttrPair struct {
	Name  string
	Value any
}

// OrderedAttrs is an attribute list that marshals to a JSON object
// preserving insertion order, unlike a Go map. Replay-stable streams
// depend on attribute order matching the source document, so a plain
// map[string]any cannot be used here.
type OrderedAttrs []AttrPair

// MarshalJSON renders the list as a JSON object in insertion order.
func (o OrderedAttrs) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value registered for name, if any.
func (o OrderedAttrs) Get(name string) (any, bool) {
	for _, a := range o {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Set appends or replaces name's value, preserving its original
// position when replacing.
func (o OrderedAttrs) Set(name string, value any) OrderedAttrs {
	for i, a := range o {
		if a.Name == name {
			o[i].Value = value
			return o
		}
	}
	return append(o, AttrPair{Name: name, Value: value})
}
