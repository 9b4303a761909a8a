package record

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/huangjunwen/rowpub"
)

func TestValueKinds(t *testing.T) {
	assert := assert.New(t)

	for i, testCase := range []*struct {
		Value        Value
		ExpectKind   Kind
		ExpectString string
		ExpectNumber json.Number
	}{
		{Value: Value{}, ExpectKind: KindNull},
		{Value: Null(), ExpectKind: KindNull},
		{Value: Bool(true), ExpectKind: KindBool},
		{Value: Int(-42), ExpectKind: KindNumber, ExpectNumber: "-42"},
		{Value: Uint(math.MaxUint64), ExpectKind: KindNumber, ExpectNumber: "18446744073709551615"},
		{Value: Float(1.5), ExpectKind: KindNumber, ExpectNumber: "1.5"},
		{Value: Float(1e21), ExpectKind: KindNumber, ExpectNumber: "1e+21"},
		{Value: Float(math.NaN()), ExpectKind: KindOther, ExpectString: "NaN"},
		{Value: Float(math.Inf(1)), ExpectKind: KindOther, ExpectString: "+Inf"},
		{Value: Float(math.Inf(-1)), ExpectKind: KindOther, ExpectString: "-Inf"},
		{Value: String("Ann"), ExpectKind: KindString, ExpectString: "Ann"},
		{Value: Other("2024-01-01 00:00:00"), ExpectKind: KindOther, ExpectString: "2024-01-01 00:00:00"},
		{Value: Array(Int(1)), ExpectKind: KindArray},
		{Value: Object(New()), ExpectKind: KindObject},
		{Value: Object(nil), ExpectKind: KindNull},
	} {
		assert.Equal(testCase.ExpectKind, testCase.Value.Kind(), "test case %d", i)
		assert.Equal(testCase.ExpectString, testCase.Value.AsString(), "test case %d", i)
		assert.Equal(testCase.ExpectNumber, testCase.Value.AsNumber(), "test case %d", i)
	}

	assert.Equal("number", KindNumber.String())
	assert.Equal("Kind(99)", Kind(99).String())
}

func TestArrayCopies(t *testing.T) {
	assert := assert.New(t)

	vals := []Value{Int(1), Int(2)}
	arr := Array(vals...)
	vals[0] = Int(100)
	assert.Equal(json.Number("1"), arr.AsArray()[0].AsNumber())
}

func TestRecord(t *testing.T) {
	assert := assert.New(t)

	rec := New(
		Field{Name: "id", Value: Int(1)},
		Field{Name: "name", Value: String("Ann")},
		Field{Name: "id", Value: Int(2)},
	)
	assert.Equal(2, rec.Len())

	fields := rec.Fields()
	assert.Equal("id", fields[0].Name)
	assert.Equal(json.Number("2"), fields[0].Value.AsNumber())
	assert.Equal("name", fields[1].Name)

	v, ok := rec.Get("name")
	assert.True(ok)
	assert.Equal("Ann", v.AsString())
	_, ok = rec.Get("nope")
	assert.False(ok)

	names := []string{}
	rec.Range(func(name string, _ Value) bool {
		names = append(names, name)
		return false
	})
	assert.Equal([]string{"id"}, names)

	iface, err := rec.Interface()
	assert.NoError(err)
	assert.Equal(map[string]interface{}{
		"id":   json.Number("2"),
		"name": "Ann",
	}, iface)

	// Zero Record is usable.
	var zero Record
	zero.Set("a", Null())
	assert.Equal(1, zero.Len())

	assert.Panics(func() { FromColumns([]string{"a"}, nil) })
	rec = FromColumns([]string{"a", "b"}, []Value{Bool(true), Null()})
	iface, err = rec.Interface()
	assert.NoError(err)
	assert.Equal(map[string]interface{}{"a": true, "b": nil}, iface)
}

func TestInterfaceCycle(t *testing.T) {
	assert := assert.New(t)

	rec := New(Field{Name: "id", Value: Int(1)})
	rec.Set("self", Object(rec))
	_, err := rec.Interface()
	assert.True(rowpub.IsCode(err, rowpub.EncodingError))

	_, err = Array(Object(rec)).Interface()
	assert.True(rowpub.IsCode(err, rowpub.EncodingError))

	// The same Record twice is not a cycle.
	shared := New(Field{Name: "k", Value: String("v")})
	iface, err := Array(Object(shared), Object(shared)).Interface()
	assert.NoError(err)
	assert.Equal([]interface{}{
		map[string]interface{}{"k": "v"},
		map[string]interface{}{"k": "v"},
	}, iface)

	deep := Int(1)
	for i := 0; i < MaxDepth+2; i++ {
		deep = Array(deep)
	}
	_, err = deep.Interface()
	assert.True(rowpub.IsCode(err, rowpub.EncodingError))
}
