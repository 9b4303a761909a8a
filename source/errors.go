package source

import (
	"errors"
)

var (
	// ErrClosed is returned when the source has been closed.
	ErrClosed = errors.New("source closed")
)
