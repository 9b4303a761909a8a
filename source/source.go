// Package source contains the abstraction of query services which yield records.
package source

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/record"
)

// RowIter is used for result set iteration. It returns nil if no more row.
// Caller should invoke RowIter(false) to close the iterator and release resource.
type RowIter func(next bool) (*record.Record, error)

// Source runs queries and yields records.
type Source interface {
	// Validate checks the query without processing any row. It should return
	// a ConfigError if the query is malformed.
	Validate(ctx context.Context, query string) error

	// Query runs the query and returns an iterator over the result set.
	Query(ctx context.Context, query string) (RowIter, error)

	// Close releases resources.
	Close() error
}

// CheckQuery returns a ConfigError if query is blank.
func CheckQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.WithStack(rowpub.Errorf(rowpub.ConfigError, "empty query"))
	}
	return nil
}

// Drain iterates all rows and calls fn for each one. The iterator is always closed.
func Drain(iter RowIter, fn func(*record.Record) error) (err error) {
	defer func() {
		if err2 := errors.WithMessage(iterClose(iter), "close iterator"); err == nil {
			err = err2
		}
	}()
	for {
		rec, err := iter(true)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func iterClose(iter RowIter) error {
	_, err := iter(false)
	return err
}
