package rowpub

import (
	"strconv"
)

// ErrorCode describes the reason of Error.
//
// Range -32768 ~ -32000 are reserved (like json-rpc).
// Range -32768 ~ -32500 are not retryable error.
type ErrorCode int16

const (
	// ConfigError should be returned when the job is mis-configured, for example:
	//   - Empty or malformed query.
	//   - Malformed topic identifier.
	//   - Invalid option value.
	// It is always reported before any row is processed.
	ConfigError ErrorCode = -32700

	// EncodingError should be returned when a record can't be converted to json text,
	// even after falling back to string representation.
	EncodingError ErrorCode = -32600

	// NotRetryableError should be returned when you should not try again.
	NotRetryableError ErrorCode = -32500

	// SourceError should be returned when the query service fails to yield rows.
	SourceError ErrorCode = -32001

	// PublishError should be returned when the publish service rejects a message.
	PublishError ErrorCode = -32002
)

// Retryable returns true when the code > -32500.
func (ec ErrorCode) Retryable() bool {
	return ec > -32500
}

func (ec ErrorCode) String() string {
	switch ec {
	case ConfigError:
		return "ConfigError"
	case EncodingError:
		return "EncodingError"
	case NotRetryableError:
		return "NotRetryableError"
	case SourceError:
		return "SourceError"
	case PublishError:
		return "PublishError"
	}
	return "ErrorCode(" + strconv.Itoa(int(ec)) + ")"
}
