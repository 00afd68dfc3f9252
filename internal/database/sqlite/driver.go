package sqlite

import (
	"context"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/joacominatel/dbprobe/internal/database"
)

// Driver implements database.Driver for SQLite database files.
type Driver struct{}

// New creates a new SQLite driver.
func New() *Driver {
	return &Driver{}
}

// Name returns the configuration name of the driver.
func (d *Driver) Name() string {
	return "sqlite"
}

// Open connects one session to the database file named by dsn. The file
// must already exist.
func (d *Driver) Open(ctx context.Context, dsn string) (database.Session, error) {
	s, err := database.OpenSQL(ctx, "sqlite", fileURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return s, nil
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// fileURI turns a plain path into a read-write URI so a missing file fails
// to open instead of being created. URIs and :memory: pass through.
func fileURI(dsn string) string {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return "file:" + uriEscaper.Replace(dsn) + "?mode=rw"
}

// ColumnsQuery returns the column introspection query.
func (d *Driver) ColumnsQuery() string {
	return queryGetColumns
}

// TableExistsQuery returns the table existence query.
func (d *Driver) TableExistsQuery() string {
	return queryTableExists
}

// TopRowsQuery returns a bounded fetch with the limit bound as ?.
func (d *Driver) TopRowsQuery(table string) string {
	return "SELECT * FROM " + d.QuoteIdent(table) + " LIMIT ?"
}

// QuoteIdent wraps name in double quotes.
func (d *Driver) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
