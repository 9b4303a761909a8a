package source

import (
	"context"
	"sync"

	"github.com/huangjunwen/rowpub/record"
)

// StaticSource yields a fixed list of records for any query. It's useful for
// testing and for replaying records.
type StaticSource struct {
	mu      sync.Mutex
	records []*record.Record
	closed  bool
}

var (
	_ Source = (*StaticSource)(nil)
)

// NewStaticSource creates a StaticSource.
func NewStaticSource(records ...*record.Record) *StaticSource {
	return &StaticSource{
		records: records,
	}
}

// Validate implements Source interface.
func (src *StaticSource) Validate(ctx context.Context, query string) error {
	return CheckQuery(query)
}

// Query implements Source interface.
func (src *StaticSource) Query(ctx context.Context, query string) (RowIter, error) {
	if err := CheckQuery(query); err != nil {
		return nil, err
	}

	src.mu.Lock()
	closed := src.closed
	records := src.records
	src.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	i := 0
	done := false
	return func(next bool) (*record.Record, error) {
		if !next {
			done = true
			return nil, nil
		}
		if done || i >= len(records) {
			return nil, ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := records[i]
		i++
		return rec, nil
	}, nil
}

// Close implements Source interface.
func (src *StaticSource) Close() error {
	src.mu.Lock()
	src.closed = true
	src.mu.Unlock()
	return nil
}
