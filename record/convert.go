package record

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/volatiletech/null.v6"

	"github.com/huangjunwen/rowpub"
)

// MaxDepth is the max nesting level of arrays/objects accepted by FromGo.
const MaxDepth = 64

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type converter struct {
	visiting map[visitKey]struct{}
}

// FromGo converts a Go value to Value, see package doc for the type table.
// Unsupported types, cyclic data and too deep nesting return an EncodingError.
func FromGo(v interface{}) (Value, error) {
	c := &converter{}
	return c.convert(v, "$", 0)
}

// MustFromGo is the `must` version of FromGo.
func MustFromGo(v interface{}) Value {
	ret, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return ret
}

// FromMap converts a map to a Record. Since Go maps have no order, fields are
// sorted by name.
func FromMap(m map[string]interface{}) (*Record, error) {
	v, err := FromGo(m)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return New(), nil
	}
	return v.AsObject(), nil
}

func encodingErrorf(path string, format string, args ...interface{}) error {
	return errors.WithStack(rowpub.Errorf(rowpub.EncodingError, "%s: %s", path, fmt.Sprintf(format, args...)))
}

func (c *converter) convert(v interface{}, path string, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, encodingErrorf(path, "nesting deeper than %d", MaxDepth)
	}

	switch x := v.(type) {
	case nil:
		return Null(), nil

	case Value:
		return x, nil

	case *Record:
		return Object(x), nil

	case bool:
		return Bool(x), nil

	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Uint(uint64(x)), nil
	case uint8:
		return Uint(uint64(x)), nil
	case uint16:
		return Uint(uint64(x)), nil
	case uint32:
		return Uint(uint64(x)), nil
	case uint64:
		return Uint(x), nil
	case float32:
		return floatValue(float64(x), 32), nil
	case float64:
		return Float(x), nil

	case string:
		return String(x), nil

	case json.Number:
		if !isNumberLiteral(string(x)) {
			return Value{}, encodingErrorf(path, "invalid json.Number %q", string(x))
		}
		return Number(x), nil

	case json.RawMessage:
		if x == nil {
			return Null(), nil
		}
		dec := json.NewDecoder(bytes.NewReader(x))
		dec.UseNumber()
		var decoded interface{}
		if err := dec.Decode(&decoded); err != nil {
			return Value{}, encodingErrorf(path, "invalid json.RawMessage: %s", err.Error())
		}
		if err := dec.Decode(&json.RawMessage{}); err != io.EOF {
			return Value{}, encodingErrorf(path, "invalid json.RawMessage: trailing data after offset %d", dec.InputOffset())
		}
		return c.convert(decoded, path, depth)

	case []byte:
		if x == nil {
			return Null(), nil
		}
		return Other(FormatBytes(x)), nil

	case *big.Int:
		if x == nil {
			return Null(), nil
		}
		return Number(json.Number(x.String())), nil

	case *big.Rat:
		if x == nil {
			return Null(), nil
		}
		return Other(FormatRat(x)), nil

	case *big.Float:
		if x == nil {
			return Null(), nil
		}
		return Other(x.Text('g', -1)), nil

	case decimal.Decimal:
		return Other(x.String()), nil

	case decimal.NullDecimal:
		if !x.Valid {
			return Null(), nil
		}
		return Other(x.Decimal.String()), nil

	case time.Time:
		return Other(FormatTime(x)), nil

	case time.Duration:
		return Other(x.String()), nil

	case civil.Date:
		return Other(FormatDate(x)), nil

	case civil.Time:
		return Other(FormatClock(x)), nil

	case civil.DateTime:
		return Other(FormatDateTime(x)), nil

	// database/sql null types.
	case sql.NullBool:
		return nullOr(x.Valid, func() Value { return Bool(x.Bool) }), nil
	case sql.NullByte:
		return nullOr(x.Valid, func() Value { return Uint(uint64(x.Byte)) }), nil
	case sql.NullInt16:
		return nullOr(x.Valid, func() Value { return Int(int64(x.Int16)) }), nil
	case sql.NullInt32:
		return nullOr(x.Valid, func() Value { return Int(int64(x.Int32)) }), nil
	case sql.NullInt64:
		return nullOr(x.Valid, func() Value { return Int(x.Int64) }), nil
	case sql.NullFloat64:
		return nullOr(x.Valid, func() Value { return Float(x.Float64) }), nil
	case sql.NullString:
		return nullOr(x.Valid, func() Value { return String(x.String) }), nil
	case sql.NullTime:
		return nullOr(x.Valid, func() Value { return Other(FormatTime(x.Time)) }), nil
	case sql.RawBytes:
		// NOTE: RawBytes is only valid until next Scan, it is copied by string conversion.
		if x == nil {
			return Null(), nil
		}
		return String(string(x)), nil
	case mysql.NullTime:
		return nullOr(x.Valid, func() Value { return Other(FormatTime(x.Time)) }), nil

	// gopkg.in/volatiletech/null.v6 types.
	case null.Int8:
		return nullOr(x.Valid, func() Value { return Int(int64(x.Int8)) }), nil
	case null.Uint8:
		return nullOr(x.Valid, func() Value { return Uint(uint64(x.Uint8)) }), nil
	case null.Int16:
		return nullOr(x.Valid, func() Value { return Int(int64(x.Int16)) }), nil
	case null.Uint16:
		return nullOr(x.Valid, func() Value { return Uint(uint64(x.Uint16)) }), nil
	case null.Int32:
		return nullOr(x.Valid, func() Value { return Int(int64(x.Int32)) }), nil
	case null.Uint32:
		return nullOr(x.Valid, func() Value { return Uint(uint64(x.Uint32)) }), nil
	case null.Int64:
		return nullOr(x.Valid, func() Value { return Int(x.Int64) }), nil
	case null.Uint64:
		return nullOr(x.Valid, func() Value { return Uint(x.Uint64) }), nil
	case null.Float32:
		return nullOr(x.Valid, func() Value { return floatValue(float64(x.Float32), 32) }), nil
	case null.Float64:
		return nullOr(x.Valid, func() Value { return Float(x.Float64) }), nil
	case null.String:
		return nullOr(x.Valid, func() Value { return String(x.String) }), nil
	}

	return c.convertReflect(v, path, depth)
}

func (c *converter) convertReflect(v interface{}, path string, depth int) (Value, error) {
	rv := reflect.ValueOf(v)

	// Pointers are dereferenced before checking interfaces, so that *time.Time
	// renders the same as time.Time.
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return Null(), nil
		}
		key := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
		if err := c.enter(key, path); err != nil {
			return Value{}, err
		}
		defer c.leave(key)
		return c.convert(rv.Elem().Interface(), path, depth+1)
	}

	switch x := v.(type) {
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return Value{}, encodingErrorf(path, "%T.Value() failed: %s", v, err.Error())
		}
		if reflect.TypeOf(dv) == rv.Type() {
			return Value{}, encodingErrorf(path, "%T.Value() returns itself", v)
		}
		return c.convert(dv, path, depth+1)

	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return Value{}, encodingErrorf(path, "%T.MarshalText() failed: %s", v, err.Error())
		}
		return Other(string(text)), nil

	case fmt.Stringer:
		return Other(x.String()), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), nil

	case reflect.Float32:
		return floatValue(rv.Float(), 32), nil

	case reflect.Float64:
		return Float(rv.Float()), nil

	case reflect.String:
		return String(rv.String()), nil

	case reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return c.convert(rv.Elem().Interface(), path, depth)

	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Other(FormatBytes(rv.Bytes())), nil
		}
		key := visitKey{ptr: rv.Pointer(), typ: rv.Type(), len: rv.Len()}
		if err := c.enter(key, path); err != nil {
			return Value{}, err
		}
		defer c.leave(key)
		return c.convertList(rv, path, depth)

	case reflect.Array:
		return c.convertList(rv, path, depth)

	case reflect.Map:
		if rv.IsNil() {
			return Null(), nil
		}
		key := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
		if err := c.enter(key, path); err != nil {
			return Value{}, err
		}
		defer c.leave(key)
		return c.convertMap(rv, path, depth)
	}

	return Value{}, encodingErrorf(path, "unsupported type %T", v)
}

func (c *converter) convertList(rv reflect.Value, path string, depth int) (Value, error) {
	n := rv.Len()
	arr := make([]Value, n)
	for i := 0; i < n; i++ {
		elem, err := c.convert(rv.Index(i).Interface(), path+"["+strconv.Itoa(i)+"]", depth+1)
		if err != nil {
			return Value{}, err
		}
		arr[i] = elem
	}
	return Value{kind: KindArray, arr: arr}, nil
}

func (c *converter) convertMap(rv reflect.Value, path string, depth int) (Value, error) {
	type entry struct {
		name string
		val  reflect.Value
	}
	entries := make([]entry, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		var name string
		switch k.Kind() {
		case reflect.String:
			name = k.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			name = strconv.FormatInt(k.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			name = strconv.FormatUint(k.Uint(), 10)
		default:
			return Value{}, encodingErrorf(path, "unsupported map key type %s", k.Type().String())
		}
		entries = append(entries, entry{name: name, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	rec := &Record{
		fields: make([]Field, 0, len(entries)),
		index:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		val, err := c.convert(e.val.Interface(), path+"."+e.name, depth+1)
		if err != nil {
			return Value{}, err
		}
		rec.Set(e.name, val)
	}
	return Object(rec), nil
}

func (c *converter) enter(key visitKey, path string) error {
	if c.visiting == nil {
		c.visiting = make(map[visitKey]struct{})
	}
	if _, ok := c.visiting[key]; ok {
		return encodingErrorf(path, "cycle detected (%s)", key.typ.String())
	}
	c.visiting[key] = struct{}{}
	return nil
}

func (c *converter) leave(key visitKey) {
	delete(c.visiting, key)
}

func nullOr(valid bool, fn func() Value) Value {
	if !valid {
		return Null()
	}
	return fn()
}

// isNumberLiteral reports whether s is a valid json number.
func isNumberLiteral(s string) bool {
	if s == "" {
		return false
	}
	if s[0] != '-' && (s[0] < '0' || s[0] > '9') {
		return false
	}
	var f interface{}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return false
	}
	_, ok := f.(json.Number)
	return ok && !dec.More() && dec.InputOffset() == int64(len(s))
}

// IsNumberLiteral reports whether s is a valid json number.
func IsNumberLiteral(s string) bool {
	return isNumberLiteral(s)
}
