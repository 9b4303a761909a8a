package redismsg

import (
	"errors"
)

var (
	// ErrClosed is returned when Publisher is closed.
	ErrClosed = errors.New("redismsg.Publisher closed")
)
