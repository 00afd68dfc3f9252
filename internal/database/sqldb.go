package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLSession is a Session over database/sql, pinned to one connection.
type SQLSession struct {
	db   *sql.DB
	conn *sql.Conn
}

// OpenSQL opens a database/sql handle limited to a single connection, takes
// that connection and pings it.
func OpenSQL(ctx context.Context, driverName, dsn string) (*SQLSession, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &SQLSession{db: db, conn: conn}, nil
}

// Query runs a statement on the pinned connection.
func (s *SQLSession) Query(ctx context.Context, query string, args ...any) (*ResultTable, error) {
	if s.conn == nil {
		return nil, errors.New("session closed")
	}

	start := time.Now()

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}

	result := &ResultTable{
		Columns: make([]string, len(types)),
		Types:   make([]string, len(types)),
	}
	for i, ct := range types {
		result.Columns[i] = ct.Name()
		result.Types[i] = ct.DatabaseTypeName()
	}

	for rows.Next() {
		values := make([]any, len(types))
		dest := make([]any, len(types))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(result.Types[i], v)
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	result.Duration = time.Since(start)
	return result, nil
}

// Close releases the connection and then the handle. It is safe to call more
// than once.
func (s *SQLSession) Close() error {
	var errs []error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close conn: %w", err))
		}
		s.conn = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
		s.db = nil
	}
	return errors.Join(errs...)
}
