package rowpub

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error should be handled properly by all component (source/pipe/publisher...) implementations.
type Error struct {
	// Code is the error code.
	Code ErrorCode `json:"code"`

	// Message is the description of the error.
	Message string `json:"message"`
}

// Errorf creates a new Error.
func Errorf(code ErrorCode, msg string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(msg, args...),
	}
}

// Error implements error interface.
func (err *Error) Error() string {
	sep := ""
	if err.Message != "" {
		sep = ": "
	}
	return fmt.Sprintf("rowpub.Error(%s%s%s)", err.Code.String(), sep, err.Message)
}

// CodeOf returns the code of the first *Error found in err's cause chain.
// ok is false if there is none.
func CodeOf(err error) (code ErrorCode, ok bool) {
	for err != nil {
		if e, is := err.(*Error); is {
			return e.Code, true
		}
		cause, is := err.(interface{ Cause() error })
		if !is {
			if u, is := err.(interface{ Unwrap() error }); is {
				err = u.Unwrap()
				continue
			}
			return 0, false
		}
		err = cause.Cause()
	}
	return 0, false
}

// IsCode returns true if err's cause chain contains an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// Wrapf annotates err with a new *Error of the given code. The original error text
// is kept in the message and the stack is recorded.
func Wrapf(err error, code ErrorCode, msg string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{
		Code:    code,
		Message: fmt.Sprintf(msg, args...) + ": " + err.Error(),
	})
}
