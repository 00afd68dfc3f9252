package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/joacominatel/dbprobe/internal/database"
)

// Driver implements database.Driver for PostgreSQL.
type Driver struct{}

// New creates a new PostgreSQL driver.
func New() *Driver {
	return &Driver{}
}

// Name returns the configuration name of the driver.
func (d *Driver) Name() string {
	return "postgres"
}

// Open establishes a single connection. No pool is created.
func (d *Driver) Open(ctx context.Context, dsn string) (database.Session, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &session{conn: conn}, nil
}

// ColumnsQuery returns the column introspection query.
func (d *Driver) ColumnsQuery() string {
	return queryGetColumns
}

// TableExistsQuery returns the table existence query.
func (d *Driver) TableExistsQuery() string {
	return queryTableExists
}

// TopRowsQuery returns a bounded fetch with the limit bound as $1.
func (d *Driver) TopRowsQuery(table string) string {
	return "SELECT * FROM " + d.QuoteIdent(table) + " LIMIT $1"
}

// QuoteIdent quotes name so its case is preserved.
func (d *Driver) QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

type session struct {
	conn *pgx.Conn
}

func (s *session) Query(ctx context.Context, query string, args ...any) (*database.ResultTable, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("session closed")
	}

	start := time.Now()

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &database.ResultTable{
		Columns: make([]string, len(fields)),
		Types:   make([]string, len(fields)),
	}
	typeMap := s.conn.TypeMap()
	for i, f := range fields {
		result.Columns[i] = f.Name
		if t, ok := typeMap.TypeForOID(f.DataTypeOID); ok {
			result.Types[i] = strings.ToUpper(t.Name)
		}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
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

func (s *session) Close() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return conn.Close(ctx)
}
