// Package jsonenc implements an Encoder which encodes a record into one line of json text.
package jsonenc

import (
	"bytes"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/enc"
	"github.com/huangjunwen/rowpub/record"
)

// JsonEncoder encodes a record into a compact json object. Fields keep the
// record's order. Other values (timestamps, decimals, bytes...) are encoded as
// json strings of their rendering.
type JsonEncoder struct {
	Name string

	// EscapeHTML escapes '<', '>' and '&' in strings like encoding/json does.
	EscapeHTML bool

	// MaxDepth limits nesting of objects/arrays, default to record.MaxDepth if <= 0.
	MaxDepth int
}

var (
	// Default is a JsonEncoder with default options.
	Default = &JsonEncoder{
		Name: "json",
	}
	_ enc.Encoder = (*JsonEncoder)(nil)
)

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// EncoderName returns e.Name.
func (e *JsonEncoder) EncoderName() string {
	return e.Name
}

// EncodeRecord implements enc.Encoder interface. The returned slice is owned by
// the caller.
func (e *JsonEncoder) EncodeRecord(rec *record.Record) ([]byte, error) {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	w := &writer{
		buf:        buf,
		escapeHTML: e.EscapeHTML,
		maxDepth:   e.MaxDepth,
		visiting:   map[*record.Record]struct{}{},
	}
	if w.maxDepth <= 0 {
		w.maxDepth = record.MaxDepth
	}

	if rec == nil {
		rec = record.New()
	}
	if err := w.writeObject(rec, "$", 0); err != nil {
		return nil, err
	}

	ret := make([]byte, buf.Len())
	copy(ret, buf.Bytes())
	return ret, nil
}

// Encode encodes rec using Default.
func Encode(rec *record.Record) ([]byte, error) {
	return Default.EncodeRecord(rec)
}

type writer struct {
	buf        *bytes.Buffer
	escapeHTML bool
	maxDepth   int
	visiting   map[*record.Record]struct{}
	strEnc     *json.Encoder
}

func encodingErrorf(path string, format string, args ...interface{}) error {
	return errors.WithStack(rowpub.Errorf(rowpub.EncodingError, "%s: "+format, append([]interface{}{path}, args...)...))
}

func (w *writer) writeObject(rec *record.Record, path string, depth int) error {
	if depth > w.maxDepth {
		return encodingErrorf(path, "nesting deeper than %d", w.maxDepth)
	}
	if _, ok := w.visiting[rec]; ok {
		return encodingErrorf(path, "cycle detected")
	}
	w.visiting[rec] = struct{}{}
	defer delete(w.visiting, rec)

	w.buf.WriteByte('{')
	first := true
	var err error
	rec.Range(func(name string, v record.Value) bool {
		if !first {
			w.buf.WriteByte(',')
		}
		first = false
		if err = w.writeString(name); err != nil {
			return false
		}
		w.buf.WriteByte(':')
		err = w.writeValue(v, path+"."+name, depth+1)
		return err == nil
	})
	if err != nil {
		return err
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *writer) writeValue(v record.Value, path string, depth int) error {
	switch v.Kind() {
	case record.KindNull:
		w.buf.WriteString("null")

	case record.KindBool:
		if v.AsBool() {
			w.buf.WriteString("true")
		} else {
			w.buf.WriteString("false")
		}

	case record.KindNumber:
		lit := string(v.AsNumber())
		if !record.IsNumberLiteral(lit) {
			return encodingErrorf(path, "invalid number literal %q", lit)
		}
		w.buf.WriteString(lit)

	case record.KindString, record.KindOther:
		return w.writeString(v.AsString())

	case record.KindArray:
		if depth > w.maxDepth {
			return encodingErrorf(path, "nesting deeper than %d", w.maxDepth)
		}
		w.buf.WriteByte('[')
		for i, elem := range v.AsArray() {
			if i != 0 {
				w.buf.WriteByte(',')
			}
			if err := w.writeValue(elem, path+"["+strconv.Itoa(i)+"]", depth+1); err != nil {
				return err
			}
		}
		w.buf.WriteByte(']')

	case record.KindObject:
		return w.writeObject(v.AsObject(), path, depth)

	default:
		return encodingErrorf(path, "unknown value kind %s", v.Kind().String())
	}
	return nil
}

// writeString writes a json string. Invalid UTF-8 is replaced by U+FFFD.
func (w *writer) writeString(s string) error {
	if w.strEnc == nil {
		w.strEnc = json.NewEncoder(w.buf)
		w.strEnc.SetEscapeHTML(w.escapeHTML)
	}
	if err := w.strEnc.Encode(s); err != nil {
		return errors.WithStack(rowpub.Errorf(rowpub.EncodingError, "encode string: %s", err.Error()))
	}
	// json.Encoder terminates each value with a newline.
	w.buf.Truncate(w.buf.Len() - 1)
	return nil
}
