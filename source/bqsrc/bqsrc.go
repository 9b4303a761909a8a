// Package bqsrc implements source.Source on top of BigQuery standard SQL queries.
package bqsrc

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/record"
	"github.com/huangjunwen/rowpub/source"
)

// BQSource runs BigQuery queries.
type BQSource struct {
	// Immutable fields.
	client    *bigquery.Client
	ownClient bool
	location  string
	labels    map[string]string
	noCache   bool
	logger    zerolog.Logger
}

// Option is option in creating BQSource.
type Option func(*BQSource) error

var (
	_ source.Source = (*BQSource)(nil)
)

// New creates a BQSource from a client. The client is not closed by Close.
func New(client *bigquery.Client, opts ...Option) (*BQSource, error) {
	if client == nil {
		return nil, errors.New("bqsrc.New got nil *bigquery.Client")
	}
	src := &BQSource{
		client: client,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(src); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// Open creates a client for projectID (the project running query jobs) then
// creates a BQSource owning the client.
func Open(ctx context.Context, projectID string, opts []Option, clientOpts ...option.ClientOption) (*BQSource, error) {
	if projectID == "" {
		return nil, errors.WithStack(rowpub.Errorf(rowpub.ConfigError, "empty bigquery project"))
	}
	client, err := bigquery.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, rowpub.Wrapf(err, rowpub.SourceError, "bigquery.NewClient")
	}
	src, err := New(client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	src.ownClient = true
	return src, nil
}

func (src *BQSource) newQuery(query string) *bigquery.Query {
	q := src.client.Query(query)
	q.UseLegacySQL = false
	q.Location = src.location
	q.Labels = src.labels
	q.DisableQueryCache = src.noCache
	return q
}

// Validate implements source.Source interface. It runs a dry run job, so a
// malformed query is reported without reading any row.
func (src *BQSource) Validate(ctx context.Context, query string) error {
	if err := source.CheckQuery(query); err != nil {
		return err
	}
	q := src.newQuery(query)
	q.DryRun = true
	job, err := q.Run(ctx)
	if err != nil {
		return rowpub.Wrapf(err, rowpub.ConfigError, "dry run query")
	}
	if err := job.LastStatus().Err(); err != nil {
		return rowpub.Wrapf(err, rowpub.ConfigError, "dry run query")
	}
	if stats := job.LastStatus().Statistics; stats != nil {
		src.logger.Info().Int64("bytes", stats.TotalBytesProcessed).Msg("dry run ok")
	}
	return nil
}

// Query implements source.Source interface.
func (src *BQSource) Query(ctx context.Context, query string) (source.RowIter, error) {
	if err := source.CheckQuery(query); err != nil {
		return nil, err
	}

	it, err := src.newQuery(query).Read(ctx)
	if err != nil {
		return nil, rowpub.Wrapf(err, rowpub.SourceError, "bqsrc.Query error")
	}
	src.logger.Debug().Uint64("totalRows", it.TotalRows).Msg("query started")

	done := false
	return func(next bool) (*record.Record, error) {
		if done {
			return nil, nil
		}
		if !next {
			done = true
			return nil, nil
		}

		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			done = true
			return nil, nil
		}
		if err != nil {
			return nil, rowpub.Wrapf(err, rowpub.SourceError, "bqsrc.Query next row error")
		}
		return ConvertRow(it.Schema, row)
	}, nil
}

// Close implements source.Source interface.
func (src *BQSource) Close() error {
	if src.ownClient {
		return src.client.Close()
	}
	return nil
}
