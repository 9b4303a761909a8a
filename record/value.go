package record

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the tag of Value.
type Kind uint8

const (
	// KindNull is json null.
	KindNull Kind = iota

	// KindBool is json true/false.
	KindBool

	// KindNumber is json number. The literal text is kept so that 64-bit and
	// big integers are lossless.
	KindNumber

	// KindString is json string.
	KindString

	// KindObject is a nested Record.
	KindObject

	// KindArray is a list of Values.
	KindArray

	// KindOther is a value without json representation (timestamp, decimal, bytes...)
	// which has been rendered to string. It is encoded as json string.
	KindOther
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindObject: "object",
	KindArray:  "array",
	KindOther:  "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged variant. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // number literal, string or rendered other.
	arr  []Value
	obj  *Record
}

// Null returns a null Value.
func Null() Value {
	return Value{}
}

// Bool returns a bool Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int returns a number Value.
func Int(i int64) Value {
	return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)}
}

// Uint returns a number Value.
func Uint(u uint64) Value {
	return Value{kind: KindNumber, s: strconv.FormatUint(u, 10)}
}

// Float returns a number Value. NaN and infinities have no json representation,
// they are returned as Other ("NaN", "+Inf", "-Inf").
func Float(f float64) Value {
	return floatValue(f, 64)
}

func floatValue(f float64, bitSize int) Value {
	lit := strconv.FormatFloat(f, 'g', -1, bitSize)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Other(lit)
	}
	return Value{kind: KindNumber, s: lit}
}

// Number returns a number Value from its literal text. The literal is checked
// when encoding.
func Number(lit json.Number) Value {
	return Value{kind: KindNumber, s: string(lit)}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Array returns an array Value. vals is copied.
func Array(vals ...Value) Value {
	arr := make([]Value, len(vals))
	copy(arr, vals)
	return Value{kind: KindArray, arr: arr}
}

// Object returns an object Value. A nil rec is null.
func Object(rec *Record) Value {
	if rec == nil {
		return Null()
	}
	return Value{kind: KindObject, obj: rec}
}

// Other returns a Value which has no json representation but has been rendered
// to a string.
func Other(rendered string) Value {
	return Value{kind: KindOther, s: rendered}
}

// Kind returns the tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull returns true if v is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the bool. It's false for non bool Value.
func (v Value) AsBool() bool {
	return v.kind == KindBool && v.b
}

// AsNumber returns the number literal. It's empty for non number Value.
func (v Value) AsNumber() json.Number {
	if v.kind != KindNumber {
		return ""
	}
	return json.Number(v.s)
}

// AsString returns the string of a string Value or the rendering of an other Value.
func (v Value) AsString() string {
	if v.kind != KindString && v.kind != KindOther {
		return ""
	}
	return v.s
}

// AsArray returns elements of an array Value. Don't modify it.
func (v Value) AsArray() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// AsObject returns the nested Record of an object Value.
func (v Value) AsObject() *Record {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Interface converts v to what encoding/json produces when decoding with
// UseNumber: nil, bool, json.Number, string, []interface{}, map[string]interface{}.
// Other Values become strings. Cyclic or too deep (> MaxDepth) objects
// return an EncodingError.
func (v Value) Interface() (interface{}, error) {
	c := &ifaceConverter{}
	return c.value(v, "$", 0)
}

type ifaceConverter struct {
	visiting map[*Record]struct{}
}

func (c *ifaceConverter) value(v Value, path string, depth int) (interface{}, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindNumber:
		return json.Number(v.s), nil
	case KindString, KindOther:
		return v.s, nil
	case KindArray:
		if depth > MaxDepth {
			return nil, encodingErrorf(path, "nesting deeper than %d", MaxDepth)
		}
		ret := make([]interface{}, 0, len(v.arr))
		for i, elem := range v.arr {
			e, err := c.value(elem, path+"["+strconv.Itoa(i)+"]", depth+1)
			if err != nil {
				return nil, err
			}
			ret = append(ret, e)
		}
		return ret, nil
	case KindObject:
		if v.obj == nil {
			return nil, nil
		}
		return c.object(v.obj, path, depth)
	default:
		return nil, nil
	}
}

func (c *ifaceConverter) object(rec *Record, path string, depth int) (map[string]interface{}, error) {
	if depth > MaxDepth {
		return nil, encodingErrorf(path, "nesting deeper than %d", MaxDepth)
	}
	if c.visiting == nil {
		c.visiting = make(map[*Record]struct{})
	}
	if _, ok := c.visiting[rec]; ok {
		return nil, encodingErrorf(path, "cycle detected")
	}
	c.visiting[rec] = struct{}{}
	defer delete(c.visiting, rec)

	ret := make(map[string]interface{}, len(rec.fields))
	for _, f := range rec.fields {
		val, err := c.value(f.Value, path+"."+f.Name, depth+1)
		if err != nil {
			return nil, err
		}
		ret[f.Name] = val
	}
	return ret, nil
}
