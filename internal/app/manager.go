package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joacominatel/dbprobe/internal/config"
	"github.com/joacominatel/dbprobe/internal/database"
)

// EmployeesTable is the table the probe workflow reads by default.
const EmployeesTable = "Employees"

// State is the lifecycle position of a Manager.
type State int

const (
	StateUnconnected State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Manager owns one database session and runs schema and query operations
// over it. Failures never reach the caller: each one is logged and turned
// into false or nil, and the most recent one is available from Err.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	conn    config.Connection
	driver  database.Driver
	log     zerolog.Logger
	session database.Session
	state   State
	err     error
}

// NewManager creates an unconnected manager for conn.
func NewManager(conn config.Connection, driver database.Driver, logger zerolog.Logger) *Manager {
	return &Manager{
		conn:   conn,
		driver: driver,
		log: logger.With().
			Str("session", uuid.NewString()).
			Str("driver", driver.Name()).
			Logger(),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Err returns the failure of the most recent operation, or nil.
func (m *Manager) Err() error {
	return m.err
}

// Dialect returns the SQL dialect of the underlying driver.
func (m *Manager) Dialect() database.Dialect {
	return m.driver
}

// Connect opens the session. The attempt is bounded by the connection's
// connect timeout. Connecting an already connected manager is a no-op.
func (m *Manager) Connect(ctx context.Context) (ok bool) {
	defer m.recoverUnexpected("connection")
	m.err = nil

	switch m.state {
	case StateConnected:
		m.log.Warn().Msg("Already connected; reusing the open session")
		return true
	case StateClosed:
		m.fail(ErrClosed, "Database connection error")
		return false
	}

	target := m.conn.DisplayString()
	if err := m.conn.Validate(); err != nil {
		m.fail(&ErrConnection{Target: target, Cause: err}, "Invalid connection settings")
		return false
	}

	m.log.Info().Str("target", target).Msg("Attempting to connect")

	ctx, cancel := context.WithTimeout(ctx, m.conn.Timeout())
	defer cancel()

	session, err := m.driver.Open(ctx, m.conn.DSN())
	if err != nil {
		m.fail(&ErrConnection{Target: target, Cause: err}, "Database connection error")
		return false
	}

	m.session = session
	m.state = StateConnected
	m.log.Info().Str("target", target).Msg("Successfully connected")
	return true
}

// TestConnection runs a trivial round trip. It returns false without
// querying when no session is open.
func (m *Manager) TestConnection(ctx context.Context) (ok bool) {
	defer m.recoverUnexpected("connection test")
	m.err = nil

	if _, err := m.query(ctx, "SELECT 1 AS test"); err != nil {
		m.fail(err, "Connection test failed")
		return false
	}

	m.log.Info().Msg("Connection test successful")
	return true
}

// TableInfo returns the columns of table in ordinal order. ok is false when
// the catalog could not be read.
func (m *Manager) TableInfo(ctx context.Context, table string) (cols []database.ColumnDescriptor, ok bool) {
	defer m.recoverUnexpected("table introspection")
	m.err = nil

	cols, err := m.tableInfo(ctx, table)
	if err != nil {
		m.fail(err, "Error getting table info")
		return nil, false
	}
	return cols, true
}

// FetchRows returns at most limit rows of table. The table must exist in
// the catalog; otherwise nothing else is queried and nil is returned.
func (m *Manager) FetchRows(ctx context.Context, table string, limit int) (result *database.ResultTable) {
	defer m.recoverUnexpected("fetch rows")
	m.err = nil

	if limit < 0 {
		m.fail(fmt.Errorf("row limit must not be negative, got %d", limit), "Invalid row limit")
		return nil
	}

	exists, err := m.query(ctx, m.driver.TableExistsQuery(), table)
	if err != nil {
		m.fail(err, "Error checking table existence")
		return nil
	}
	n, err := database.Count(exists)
	if err != nil {
		m.fail(&ErrQuery{Query: m.driver.TableExistsQuery(), Cause: err}, "Error checking table existence")
		return nil
	}
	if n == 0 {
		m.fail(&ErrTableNotFound{Table: table}, "Table does not exist")
		return nil
	}

	m.log.Info().Str("table", table).Msg("Getting table structure")
	if cols, err := m.tableInfo(ctx, table); err != nil {
		m.log.Warn().Err(err).Str("table", table).Msg("Could not read table structure")
	} else {
		for _, col := range cols {
			m.log.Info().Str("column", col.Name).Str("type", col.DataType).Msg("Table column")
		}
	}

	result, err = m.query(ctx, m.driver.TopRowsQuery(table), limit)
	if err != nil {
		m.fail(err, "Error fetching rows")
		return nil
	}

	m.log.Info().
		Str("table", table).
		Int("rows", result.RowCount).
		Int("limit", limit).
		Msg("Retrieved rows")
	return result
}

// ExecuteQuery runs query verbatim and returns every row.
//
// The text is passed to the server unchanged: no parameters are bound and
// nothing is escaped. Callers must never build query from untrusted input.
func (m *Manager) ExecuteQuery(ctx context.Context, query string) (result *database.ResultTable) {
	defer m.recoverUnexpected("custom query")
	m.err = nil

	m.log.Info().Str("query", query).Msg("Executing custom query")

	result, err := m.query(ctx, query)
	if err != nil {
		m.fail(err, "Error executing custom query")
		return nil
	}

	m.log.Info().Int("rows", result.RowCount).Dur("took", result.Duration).Msg("Query executed successfully")
	return result
}

// Close releases the session, if any. It is safe to call in any state and
// any number of times. A closed manager cannot connect again.
func (m *Manager) Close() {
	defer m.recoverUnexpected("close")

	if m.state == StateClosed {
		m.log.Debug().Msg("Connection already closed")
		return
	}
	m.state = StateClosed

	if m.session == nil {
		m.log.Info().Msg("Connection manager closed; no session was open")
		return
	}

	session := m.session
	m.session = nil
	if err := session.Close(); err != nil {
		m.log.Error().Err(err).Msg("Error closing connection")
		return
	}
	m.log.Info().Msg("Database connection closed successfully")
}

func (m *Manager) tableInfo(ctx context.Context, table string) ([]database.ColumnDescriptor, error) {
	t, err := m.query(ctx, m.driver.ColumnsQuery(), table)
	if err != nil {
		return nil, err
	}

	cols := make([]database.ColumnDescriptor, 0, len(t.Rows))
	for _, row := range t.Rows {
		col, err := database.ColumnFromRow(row)
		if err != nil {
			return nil, &ErrQuery{Query: m.driver.ColumnsQuery(), Cause: err}
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (m *Manager) query(ctx context.Context, query string, args ...any) (*database.ResultTable, error) {
	if m.state != StateConnected || m.session == nil {
		return nil, ErrNotConnected
	}

	m.log.Debug().Str("query", query).Interface("args", args).Msg("Running statement")

	t, err := m.session.Query(ctx, query, args...)
	if err != nil {
		return nil, &ErrQuery{Query: query, Cause: err}
	}
	return t, nil
}

func (m *Manager) fail(err error, msg string) {
	m.err = err
	m.log.Error().Err(err).Msg(msg)
}

// recoverUnexpected turns a panic escaping a driver into a logged failure.
// It must be deferred directly by each exported operation.
func (m *Manager) recoverUnexpected(op string) {
	if r := recover(); r != nil {
		m.err = &ErrUnexpected{Op: op, Value: r}
		m.log.Error().Str("op", op).Interface("panic", r).Msg("Unexpected error")
	}
}
