package tag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MarshalJSON renders ints as numbers, strings as strings, lists as arrays
// and compounds as objects.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.Int)
	case KindString:
		return json.Marshal(v.Str)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindCompound:
		return v.Compound.MarshalJSON()
	default:
		return nil, fmt.Errorf("tag: cannot marshal kind %d", v.Kind)
	}
}

func (c Compound) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := c[k].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("tag: key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (c *Compound) UnmarshalJSON(b []byte) error {
	var v Value
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	if v.Kind != KindCompound {
		return fmt.Errorf("tag: expected object, got %s", v.Kind)
	}
	*c = v.Compound
	return nil
}

func fromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return Value{}, fmt.Errorf("tag: non-integer number %s", x)
		}
		return Int(n), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case []any:
		l := make([]Value, 0, len(x))
		for _, e := range x {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			l = append(l, v)
		}
		return List(l...), nil
	case map[string]any:
		c := make(Compound, len(x))
		for k, e := range x {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			c[k] = v
		}
		return Nested(c), nil
	default:
		return Value{}, fmt.Errorf("tag: unsupported json value %T", raw)
	}
}
