// Package enc contains encode related types.
package enc

import (
	"github.com/huangjunwen/rowpub/record"
)

// Encoder is used to encode a record into a message payload.
//
// Implementations must be safe for concurrent use and must not keep a
// reference to the record after return.
type Encoder interface {
	// EncoderName returns the name of the encoder, e.g. "json".
	EncoderName() string

	// EncodeRecord encodes a single record. The returned error should be an
	// EncodingError (see rowpub.ErrorCode).
	EncodeRecord(rec *record.Record) ([]byte, error)
}

// EncoderFunc is an adapter to allow the use of ordinary functions as Encoder.
type EncoderFunc struct {
	Name string
	Fn   func(*record.Record) ([]byte, error)
}

var (
	_ Encoder = (*EncoderFunc)(nil)
)

// EncoderName implements Encoder interface.
func (e *EncoderFunc) EncoderName() string {
	return e.Name
}

// EncodeRecord implements Encoder interface.
func (e *EncoderFunc) EncodeRecord(rec *record.Record) ([]byte, error) {
	return e.Fn(rec)
}
