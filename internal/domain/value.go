package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind tags the variant carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged JSON value: null, bool, number, string, array, or
// object. DSLNode.config, Step.resolvedConfig, and any other free-form
// dictionary in the data model is built from Value so the compiler never
// has to type-switch on interface{} — and so that re-serializing a
// decoded document reproduces it byte-for-byte modulo key order, which
// the plan hash (4.6) depends on.
//
// The compiler never interprets the contents of a Value belonging to a
// node's config — that is the runner's job (Non-goals, spec.md §1).
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
	keys []string // insertion order, mirrors obj
}

// Object is a free-form dictionary of Values, the shape of DSLNode.config
// and Step.resolvedConfig.
type Object map[string]Value

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Number(n float64) Value      { return Value{kind: KindNumber, n: n} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value  { return Value{kind: KindArray, arr: items} }

// NewObject builds an object Value, preserving the given key order.
func NewObject(keys []string, fields map[string]Value) Value {
	v := Value{kind: KindObject, obj: make(map[string]Value, len(fields)), keys: append([]string{}, keys...)}
	for k, val := range fields {
		v.obj[k] = val
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)    { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// Field returns a field of an object Value by key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	val, ok := v.obj[key]
	return val, ok
}

// Keys returns the object's field names in their original insertion order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return append([]string{}, v.keys...)
}

// FromAny converts a decoded interface{} (as produced by encoding/json or
// gopkg.in/yaml.v3, after normalization to map[string]any) into a Value.
func FromAny(a any) Value {
	switch t := a.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Value{kind: KindArray, arr: items}
	case map[string]any:
		keys := make([]string, 0, len(t))
		fields := make(map[string]Value, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields[k] = FromAny(t[k])
		}
		return NewObject(keys, fields)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Any converts a Value back into a plain interface{} tree, the inverse of
// FromAny, suitable for handing to encoding/json or a template resolver.
func (v Value) Any() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, val := range v.obj {
			out[k] = val.Any()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders object keys in sorted order so two Values built from
// the same logical document serialize identically regardless of map
// iteration order — required for plan-hash determinism (spec.md §4.6/§9).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		keys := append([]string{}, v.keys...)
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := json.Marshal(v.obj[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON value into a Value. Object keys are stored
// in sorted order; the order in which they appear on the wire is not kept.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromDecoded(raw)
	return nil
}

func fromDecoded(a any) Value {
	switch t := a.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		f, _ := t.Float64()
		return Number(f)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromDecoded(item)
		}
		return Value{kind: KindArray, arr: items}
	case map[string]any:
		keys := make([]string, 0, len(t))
		fields := make(map[string]Value, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields[k] = fromDecoded(t[k])
		}
		return NewObject(keys, fields)
	default:
		return Null()
	}
}

// CopyObject copies the top-level map of a config, used when a Step's
// resolvedConfig is assigned from a DSLNode's config (spec.md §4.6), so the
// plan's map is distinct from the input DSL's. Nested array and object
// Values are not copied: they share their storage with src.
func CopyObject(src Object) Object {
	dst := make(Object, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
