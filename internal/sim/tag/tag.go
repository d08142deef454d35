// Package tag is the self-describing key/value tree devices persist
// themselves into. Values are integers, strings, lists or nested compounds.
//
// Reads never panic: a missing key or a value of the wrong kind is reported
// as absent and the caller falls back to its default.
package tag

type Kind uint8

const (
	KindInt Kind = iota + 1
	KindString
	KindList
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindCompound:
		return "compound"
	default:
		return "invalid"
	}
}

// Value is a tagged union. Exported fields keep it gob-encodable.
type Value struct {
	Kind     Kind
	Int      int64
	Str      string
	List     []Value
	Compound Compound
}

type Compound map[string]Value

func Int(v int64) Value       { return Value{Kind: KindInt, Int: v} }
func String(v string) Value   { return Value{Kind: KindString, Str: v} }
func List(vs ...Value) Value  { return Value{Kind: KindList, List: vs} }
func Nested(c Compound) Value { return Value{Kind: KindCompound, Compound: c} }
func Bool(v bool) Value       { return Int(boolInt(v)) }

func IntOf[T ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64](v T) Value {
	return Int(int64(v))
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (c Compound) PutInt(key string, v int64)         { c[key] = Int(v) }
func (c Compound) PutString(key, v string)            { c[key] = String(v) }
func (c Compound) PutBool(key string, v bool)         { c[key] = Bool(v) }
func (c Compound) PutList(key string, vs []Value)     { c[key] = List(vs...) }
func (c Compound) PutCompound(key string, v Compound) { c[key] = Nested(v) }

func (c Compound) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Compound) GetInt(key string) (int64, bool) {
	v, ok := c[key]
	if !ok || v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// IntOr returns the int at key or def when absent.
func (c Compound) IntOr(key string, def int) int {
	v, ok := c.GetInt(key)
	if !ok {
		return def
	}
	return int(v)
}

func (c Compound) GetString(key string) (string, bool) {
	v, ok := c[key]
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

func (c Compound) StringOr(key, def string) string {
	v, ok := c.GetString(key)
	if !ok {
		return def
	}
	return v
}

func (c Compound) GetBool(key string) bool {
	v, ok := c.GetInt(key)
	return ok && v != 0
}

func (c Compound) GetList(key string) ([]Value, bool) {
	v, ok := c[key]
	if !ok || v.Kind != KindList {
		return nil, false
	}
	return v.List, true
}

func (c Compound) GetCompound(key string) (Compound, bool) {
	v, ok := c[key]
	if !ok || v.Kind != KindCompound || v.Compound == nil {
		return nil, false
	}
	return v.Compound, true
}

// Clone deep-copies c.
func (c Compound) Clone() Compound {
	if c == nil {
		return nil
	}
	out := make(Compound, len(c))
	for k, v := range c {
		out[k] = v.clone()
	}
	return out
}

func (v Value) clone() Value {
	switch v.Kind {
	case KindList:
		l := make([]Value, len(v.List))
		for i := range v.List {
			l[i] = v.List[i].clone()
		}
		v.List = l
	case KindCompound:
		v.Compound = v.Compound.Clone()
	}
	return v
}
