// Package sqlsrc implements source.Source on top of database/sql.
//
// Supported drivers are registered by this package: "mysql"
// (github.com/go-sql-driver/mysql), "postgres" (github.com/lib/pq) and
// "sqlite" (modernc.org/sqlite).
package sqlsrc

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/record"
	"github.com/huangjunwen/rowpub/source"
)

// SQLSource runs queries against a RDBMS.
type SQLSource struct {
	// Immutable fields.
	db         *sql.DB
	driverName string
	ownDB      bool
	logger     zerolog.Logger
}

// Queryer abstracts sql.DB/sql.Conn/sql.Tx .
type Queryer interface {
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
}

// Option is option in creating SQLSource.
type Option func(*SQLSource) error

var (
	_ source.Source = (*SQLSource)(nil)
	_ Queryer       = (*sql.DB)(nil)
	_ Queryer       = (*sql.Conn)(nil)
	_ Queryer       = (*sql.Tx)(nil)
)

// New creates a SQLSource from an opened db. The db is not closed by Close.
func New(db *sql.DB, opts ...Option) (*SQLSource, error) {
	if db == nil {
		return nil, errors.New("sqlsrc.New got nil *sql.DB")
	}
	src := &SQLSource{
		db:         db,
		driverName: driverNameOf(db),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(src); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// Open opens a db with driverName ("mysql"/"postgres"/"sqlite") and dsn,
// then creates a SQLSource owning the db.
func Open(driverName, dsn string, opts ...Option) (*SQLSource, error) {
	if !IsSupportedDriver(driverName) {
		return nil, errors.WithStack(rowpub.Errorf(rowpub.ConfigError, "unsupported sql driver %q", driverName))
	}
	dsn, err := normalizeDSN(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.WithStack(rowpub.Errorf(rowpub.ConfigError, "open %s: %s", driverName, err.Error()))
	}
	src, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	src.ownDB = true
	return src, nil
}

// Validate implements source.Source interface. It pings the db then prepares the query.
func (src *SQLSource) Validate(ctx context.Context, query string) error {
	if err := source.CheckQuery(query); err != nil {
		return err
	}
	if err := src.db.PingContext(ctx); err != nil {
		return rowpub.Wrapf(err, rowpub.SourceError, "ping db")
	}
	stmt, err := src.db.PrepareContext(ctx, query)
	if err != nil {
		return rowpub.Wrapf(err, rowpub.ConfigError, "prepare query")
	}
	stmt.Close()
	return nil
}

// Query implements source.Source interface.
func (src *SQLSource) Query(ctx context.Context, query string) (source.RowIter, error) {
	if err := source.CheckQuery(query); err != nil {
		return nil, err
	}
	return Query(ctx, src.db, src.driverName, query, src.logger)
}

// Close implements source.Source interface.
func (src *SQLSource) Close() error {
	if src.ownDB {
		return src.db.Close()
	}
	return nil
}

// Query runs query on q and returns RowIter. Column order of the result set is
// kept in records. driverName ("mysql"/"postgres"/"sqlite") decides how
// ambiguous column types are interpreted.
func Query(ctx context.Context, q Queryer, driverName, query string, logger zerolog.Logger) (iter source.RowIter, err error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, rowpub.Wrapf(err, rowpub.SourceError, "sqlsrc.Query error")
	}
	defer func() {
		if err != nil {
			rows.Close()
		}
	}()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, rowpub.Wrapf(err, rowpub.SourceError, "sqlsrc.Query get column types error")
	}

	names := make([]string, len(colTypes))
	dbTypes := make([]string, len(colTypes))
	for i, colType := range colTypes {
		names[i] = colType.Name()
		dbTypes[i] = colType.DatabaseTypeName()
	}
	logger.Debug().Strs("columns", names).Strs("types", dbTypes).Msg("query started")

	n := 0
	closed := false
	return func(next bool) (*record.Record, error) {
		if closed {
			return nil, nil
		}
		if !next {
			closed = true
			logger.Debug().Int("rows", n).Msg("query closed")
			return nil, errors.WithMessage(rows.Close(), "sqlsrc.Query close rows error")
		}

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, rowpub.Wrapf(err, rowpub.SourceError, "sqlsrc.Query rows error")
			}
			return nil, nil
		}

		raws := make([]interface{}, len(colTypes))
		pointers := make([]interface{}, len(colTypes))
		for i := range raws {
			pointers[i] = &raws[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, rowpub.Wrapf(err, rowpub.SourceError, "sqlsrc.Query scan error")
		}

		vals := make([]record.Value, len(colTypes))
		for i, raw := range raws {
			v, err := record.FromGo(normalize(driverName, dbTypes[i], raw))
			if err != nil {
				return nil, errors.WithMessagef(err, "column %q", names[i])
			}
			vals[i] = v
		}
		n++
		return record.FromColumns(names, vals), nil
	}, nil
}

func driverNameOf(db *sql.DB) string {
	switch db.Driver().(type) {
	case *mysql.MySQLDriver, mysql.MySQLDriver:
		return "mysql"
	case *pq.Driver, pq.Driver:
		return "postgres"
	case *sqlite.Driver:
		return "sqlite"
	}
	return ""
}
