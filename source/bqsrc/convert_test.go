package bqsrc

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"

	"github.com/huangjunwen/rowpub/enc/jsonenc"
)

func TestConvertRow(t *testing.T) {
	assert := assert.New(t)

	schema := bigquery.Schema{
		{Name: "id", Type: bigquery.IntegerFieldType},
		{Name: "name", Type: bigquery.StringFieldType},
		{Name: "ts", Type: bigquery.TimestampFieldType},
		{Name: "dt", Type: bigquery.DateTimeFieldType},
		{Name: "d", Type: bigquery.DateFieldType},
		{Name: "price", Type: bigquery.NumericFieldType},
		{Name: "raw", Type: bigquery.BytesFieldType},
		{Name: "tags", Type: bigquery.StringFieldType, Repeated: true},
		{Name: "addr", Type: bigquery.RecordFieldType, Schema: bigquery.Schema{
			{Name: "city", Type: bigquery.StringFieldType},
			{Name: "zip", Type: bigquery.IntegerFieldType},
		}},
		{Name: "doc", Type: bigquery.JSONFieldType},
		{Name: "span", Type: bigquery.RangeFieldType},
		{Name: "missing", Type: bigquery.FloatFieldType},
		{Name: "big", Type: bigquery.BigNumericFieldType},
	}
	row := []bigquery.Value{
		int64(1),
		"Ann",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		civil.DateTime{Date: civil.Date{Year: 2024, Month: 1, Day: 1}},
		civil.Date{Year: 2024, Month: 1, Day: 2},
		big.NewRat(1234, 100),
		[]byte("hi"),
		[]bigquery.Value{"a", "b"},
		[]bigquery.Value{"Paris", int64(75001)},
		`{"k":[1,2]}`,
		&bigquery.RangeValue{Start: civil.Date{Year: 2024, Month: 1, Day: 1}},
		nil,
		big.NewRat(-5, 1),
	}

	rec, err := ConvertRow(schema, row)
	assert.NoError(err)

	w, err := jsonenc.Encode(rec)
	assert.NoError(err)
	assert.Equal(
		`{"id":1,"name":"Ann","ts":"2024-01-01 00:00:00+00:00","dt":"2024-01-01 00:00:00","d":"2024-01-02",`+
			`"price":"12.34","raw":"aGk=","tags":["a","b"],"addr":{"city":"Paris","zip":75001},`+
			`"doc":{"k":[1,2]},"span":"[2024-01-01, UNBOUNDED)","missing":null,"big":"-5"}`,
		string(w),
	)
	assert.True(json.Valid(w))
}

func TestConvertRowError(t *testing.T) {
	assert := assert.New(t)

	schema := bigquery.Schema{
		{Name: "id", Type: bigquery.IntegerFieldType},
	}
	_, err := ConvertRow(schema, []bigquery.Value{})
	assert.Error(err)

	schema = bigquery.Schema{
		{Name: "tags", Type: bigquery.StringFieldType, Repeated: true},
	}
	_, err = ConvertRow(schema, []bigquery.Value{"not a list"})
	assert.Error(err)

	schema = bigquery.Schema{
		{Name: "addr", Type: bigquery.RecordFieldType, Schema: bigquery.Schema{
			{Name: "city", Type: bigquery.StringFieldType},
		}},
	}
	_, err = ConvertRow(schema, []bigquery.Value{"not a record"})
	assert.Error(err)

	// Invalid json stays as string.
	schema = bigquery.Schema{
		{Name: "doc", Type: bigquery.JSONFieldType},
	}
	rec, err := ConvertRow(schema, []bigquery.Value{"{"})
	assert.NoError(err)
	v, _ := rec.Get("doc")
	assert.Equal("{", v.AsString())
}

func TestNewNilClient(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
