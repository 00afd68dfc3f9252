package database

import "context"

// Driver opens sessions against one kind of database server.
type Driver interface {
	Dialect

	// Name is the driver name used in configuration.
	Name() string

	// Open establishes a single session. The context bounds the connect attempt.
	Open(ctx context.Context, dsn string) (Session, error)
}

// Dialect supplies the catalog and row-limiting SQL for a server.
type Dialect interface {
	// ColumnsQuery returns (name, data type, is-nullable, max length) for every
	// column of the table bound as the only parameter, in ordinal order.
	ColumnsQuery() string

	// TableExistsQuery counts catalog tables whose name equals the only parameter.
	TableExistsQuery() string

	// TopRowsQuery selects every column of table with the row limit bound as
	// the only parameter.
	TopRowsQuery(table string) string

	// QuoteIdent quotes an identifier for use in query text.
	QuoteIdent(name string) string
}

// Session is one open connection and the statement context bound to it.
// A Session is not safe for concurrent use.
type Session interface {
	// Query runs a statement and materializes every returned row.
	Query(ctx context.Context, query string, args ...any) (*ResultTable, error)

	// Close releases the statement context and then the connection.
	Close() error
}
