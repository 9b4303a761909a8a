package bqsrc

import (
	"encoding/json"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"

	"github.com/huangjunwen/rowpub/record"
)

// ConvertRow converts a row loaded as []bigquery.Value to a Record, field
// order follows schema.
//
//   - RECORD -> object, REPEATED -> array.
//   - NUMERIC/BIGNUMERIC -> decimal string.
//   - JSON -> nested json value (string if not valid json).
//   - INTERVAL -> canonical interval string, RANGE -> "[start, end)".
//   - Others follow record.FromGo.
func ConvertRow(schema bigquery.Schema, row []bigquery.Value) (*record.Record, error) {
	if len(schema) != len(row) {
		return nil, errors.Errorf("bqsrc: schema has %d fields but row has %d values", len(schema), len(row))
	}
	names := make([]string, len(schema))
	vals := make([]record.Value, len(schema))
	for i, fs := range schema {
		v, err := convertField(fs, row[i])
		if err != nil {
			return nil, errors.WithMessagef(err, "field %q", fs.Name)
		}
		names[i] = fs.Name
		vals[i] = v
	}
	return record.FromColumns(names, vals), nil
}

func convertField(fs *bigquery.FieldSchema, v bigquery.Value) (record.Value, error) {
	if v == nil {
		return record.Null(), nil
	}
	if !fs.Repeated {
		return convertScalar(fs, v)
	}

	elems, ok := v.([]bigquery.Value)
	if !ok {
		return record.Value{}, errors.Errorf("bqsrc: repeated field got %T", v)
	}
	arr := make([]record.Value, len(elems))
	for i, elem := range elems {
		ev, err := convertScalar(fs, elem)
		if err != nil {
			return record.Value{}, err
		}
		arr[i] = ev
	}
	return record.Array(arr...), nil
}

func convertScalar(fs *bigquery.FieldSchema, v bigquery.Value) (record.Value, error) {
	if v == nil {
		return record.Null(), nil
	}

	switch fs.Type {
	case bigquery.RecordFieldType:
		vals, ok := v.([]bigquery.Value)
		if !ok {
			return record.Value{}, errors.Errorf("bqsrc: record field got %T", v)
		}
		rec, err := ConvertRow(fs.Schema, vals)
		if err != nil {
			return record.Value{}, err
		}
		return record.Object(rec), nil

	case bigquery.NumericFieldType, bigquery.BigNumericFieldType:
		if r, ok := v.(*big.Rat); ok {
			return record.Other(record.FormatRat(r)), nil
		}

	case bigquery.JSONFieldType:
		if s, ok := v.(string); ok {
			if json.Valid([]byte(s)) {
				return record.FromGo(json.RawMessage(s))
			}
			return record.String(s), nil
		}

	case bigquery.IntervalFieldType:
		if iv, ok := v.(*bigquery.IntervalValue); ok {
			return record.Other(iv.String()), nil
		}

	case bigquery.RangeFieldType:
		if rv, ok := v.(*bigquery.RangeValue); ok {
			return record.Other(formatRange(rv)), nil
		}
	}

	return record.FromGo(v)
}

func formatRange(rv *bigquery.RangeValue) string {
	bound := func(v bigquery.Value) string {
		if v == nil {
			return "UNBOUNDED"
		}
		rendered, err := record.FromGo(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		if rendered.Kind() == record.KindNumber {
			return string(rendered.AsNumber())
		}
		return rendered.AsString()
	}
	return "[" + bound(rv.Start) + ", " + bound(rv.End) + ")"
}
