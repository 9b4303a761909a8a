package pubsubmsg

import (
	"errors"
)

var (
	// ErrClosed is returned when Publisher is closed.
	ErrClosed = errors.New("pubsubmsg.Publisher closed")
)
