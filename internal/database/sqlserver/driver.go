package sqlserver

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/joacominatel/dbprobe/internal/database"
)

// Driver implements database.Driver for SQL Server over TDS.
type Driver struct{}

// New creates a new SQL Server driver.
func New() *Driver {
	return &Driver{}
}

// Name returns the configuration name of the driver.
func (d *Driver) Name() string {
	return "sqlserver"
}

// Open connects one session using a sqlserver:// DSN.
func (d *Driver) Open(ctx context.Context, dsn string) (database.Session, error) {
	s, err := database.OpenSQL(ctx, "sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: %w", err)
	}
	return s, nil
}

// ColumnsQuery returns the column introspection query.
func (d *Driver) ColumnsQuery() string {
	return queryGetColumns
}

// TableExistsQuery returns the table existence query.
func (d *Driver) TableExistsQuery() string {
	return queryTableExists
}

// TopRowsQuery returns a bounded fetch with the limit bound as @p1.
func (d *Driver) TopRowsQuery(table string) string {
	return "SELECT TOP (@p1) * FROM " + d.QuoteIdent(table)
}

// QuoteIdent wraps name in brackets, doubling any closing bracket.
func (d *Driver) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
