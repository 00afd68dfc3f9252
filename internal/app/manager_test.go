package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/dbprobe/internal/config"
	"github.com/joacominatel/dbprobe/internal/database"
	"github.com/joacominatel/dbprobe/internal/database/sqlite"
)

type fakeSession struct {
	queries  []string
	args     [][]any
	results  map[string]*database.ResultTable
	errs     map[string]error
	panicOn  string
	closed   int
	closeErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		results: map[string]*database.ResultTable{},
		errs:    map[string]error{},
	}
}

func (s *fakeSession) Query(_ context.Context, query string, args ...any) (*database.ResultTable, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	if query == s.panicOn {
		panic("driver exploded")
	}
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	if t, ok := s.results[query]; ok {
		return t, nil
	}
	return &database.ResultTable{}, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}

type fakeDriver struct {
	*sqlite.Driver
	session  *fakeSession
	openErr  error
	opens    int
	dsn      string
	deadline time.Time
}

func (d *fakeDriver) Open(ctx context.Context, dsn string) (database.Session, error) {
	d.opens++
	d.dsn = dsn
	d.deadline, _ = ctx.Deadline()
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.session, nil
}

func table(cols []string, rows ...[]any) *database.ResultTable {
	return &database.ResultTable{Columns: cols, Rows: rows, RowCount: len(rows)}
}

func newTestManager(t *testing.T) (*Manager, *fakeDriver, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	driver := &fakeDriver{Driver: sqlite.New(), session: newFakeSession()}
	conn := config.Connection{Driver: config.DriverSQLite, Database: "probe.db"}
	return NewManager(conn, driver, zerolog.New(&logs)), driver, &logs
}

func connected(t *testing.T) (*Manager, *fakeDriver, *bytes.Buffer) {
	t.Helper()
	m, d, logs := newTestManager(t)
	require.True(t, m.Connect(context.Background()))
	return m, d, logs
}

func TestCloseNeverConnectedIsIdempotent(t *testing.T) {
	m, d, _ := newTestManager(t)

	assert.NotPanics(t, func() {
		m.Close()
		m.Close()
		m.Close()
	})
	assert.Equal(t, StateClosed, m.State())
	assert.Zero(t, d.opens)
	assert.Zero(t, d.session.closed)
}

func TestCloseReleasesSessionOnce(t *testing.T) {
	m, d, logs := connected(t)

	m.Close()
	m.Close()

	assert.Equal(t, 1, d.session.closed)
	assert.Equal(t, StateClosed, m.State())
	assert.Contains(t, logs.String(), "Database connection closed successfully")
}

func TestCloseErrorIsLoggedNotRaised(t *testing.T) {
	m, d, logs := connected(t)
	d.session.closeErr = errors.New("socket reset")

	assert.NotPanics(t, m.Close)
	assert.Equal(t, StateClosed, m.State())
	assert.Contains(t, logs.String(), "Error closing connection")
}

func TestTestConnectionWithoutSessionDoesNotQuery(t *testing.T) {
	m, d, _ := newTestManager(t)

	assert.False(t, m.TestConnection(context.Background()))
	assert.Empty(t, d.session.queries)
	assert.ErrorIs(t, m.Err(), ErrNotConnected)
}

func TestTestConnectionRoundTrip(t *testing.T) {
	m, d, _ := connected(t)

	assert.True(t, m.TestConnection(context.Background()))
	assert.Equal(t, []string{"SELECT 1 AS test"}, d.session.queries)
	assert.NoError(t, m.Err())
}

func TestConnectUsesTimeoutAndDSN(t *testing.T) {
	m, d, _ := newTestManager(t)

	start := time.Now()
	require.True(t, m.Connect(context.Background()))

	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, "probe.db", d.dsn)
	require.False(t, d.deadline.IsZero())
	assert.WithinDuration(t, start.Add(config.DefaultConnectTimeout), d.deadline, 5*time.Second)
}

func TestConnectFailureReturnsFalse(t *testing.T) {
	m, d, logs := newTestManager(t)
	d.openErr = errors.New("login failed for user")

	assert.False(t, m.Connect(context.Background()))
	assert.Equal(t, StateUnconnected, m.State())

	var connErr *ErrConnection
	require.ErrorAs(t, m.Err(), &connErr)
	assert.EqualError(t, connErr.Cause, "login failed for user")
	assert.Contains(t, logs.String(), "Database connection error")

	assert.Nil(t, m.ExecuteQuery(context.Background(), "SELECT 1"))
	assert.Empty(t, d.session.queries)
}

func TestConnectInvalidSettingsDoesNotDial(t *testing.T) {
	var logs bytes.Buffer
	d := &fakeDriver{Driver: sqlite.New(), session: newFakeSession()}
	m := NewManager(config.Connection{Driver: config.DriverSQLite}, d, zerolog.New(&logs))

	assert.False(t, m.Connect(context.Background()))
	assert.Zero(t, d.opens)
	assert.Contains(t, logs.String(), "Invalid connection settings")
}

func TestConnectTwiceKeepsOneSession(t *testing.T) {
	m, d, _ := connected(t)

	assert.True(t, m.Connect(context.Background()))
	assert.Equal(t, 1, d.opens)
}

func TestClosedIsTerminal(t *testing.T) {
	m, d, _ := connected(t)
	m.Close()

	assert.False(t, m.Connect(context.Background()))
	assert.ErrorIs(t, m.Err(), ErrClosed)
	assert.False(t, m.TestConnection(context.Background()))
	assert.Nil(t, m.FetchRows(context.Background(), EmployeesTable, 5))
	_, ok := m.TableInfo(context.Background(), EmployeesTable)
	assert.False(t, ok)
	assert.Equal(t, 1, d.opens)
	assert.Empty(t, d.session.queries)
}

func TestTableInfoOrderedDescriptors(t *testing.T) {
	m, d, _ := connected(t)
	d.session.results[d.ColumnsQuery()] = table(
		[]string{"COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "CHARACTER_MAXIMUM_LENGTH"},
		[]any{"id", "int", "NO", nil},
		[]any{"name", "varchar", "YES", int64(50)},
	)

	cols, ok := m.TableInfo(context.Background(), EmployeesTable)
	require.True(t, ok)
	require.Len(t, cols, 2)

	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "int", cols[0].DataType)
	assert.False(t, cols[0].Nullable)
	assert.Nil(t, cols[0].MaxLength)

	assert.Equal(t, "name", cols[1].Name)
	assert.True(t, cols[1].Nullable)
	require.NotNil(t, cols[1].MaxLength)
	assert.Equal(t, int64(50), *cols[1].MaxLength)

	assert.Equal(t, []any{EmployeesTable}, d.session.args[0])
}

func TestTableInfoFailure(t *testing.T) {
	m, d, logs := connected(t)
	d.session.errs[d.ColumnsQuery()] = errors.New("permission denied")

	cols, ok := m.TableInfo(context.Background(), EmployeesTable)
	assert.False(t, ok)
	assert.Nil(t, cols)

	var qErr *ErrQuery
	assert.ErrorAs(t, m.Err(), &qErr)
	assert.Contains(t, logs.String(), "Error getting table info")
}

func TestFetchRowsMissingTableOnlyChecksExistence(t *testing.T) {
	m, d, logs := connected(t)
	d.session.results[d.TableExistsQuery()] = table([]string{""}, []any{int64(0)})

	assert.Nil(t, m.FetchRows(context.Background(), EmployeesTable, 5))
	assert.Equal(t, []string{d.TableExistsQuery()}, d.session.queries)

	var notFound *ErrTableNotFound
	require.ErrorAs(t, m.Err(), &notFound)
	assert.Equal(t, EmployeesTable, notFound.Table)
	assert.Contains(t, logs.String(), "Table does not exist")
}

func TestFetchRowsBindsLimit(t *testing.T) {
	m, d, _ := connected(t)
	top := d.TopRowsQuery(EmployeesTable)
	d.session.results[d.TableExistsQuery()] = table([]string{""}, []any{int64(1)})
	d.session.results[top] = table([]string{"id", "name"},
		[]any{int64(1), "Ada"},
		[]any{int64(2), "Grace"},
		[]any{int64(3), "Edsger"},
	)

	rows := m.FetchRows(context.Background(), EmployeesTable, 5)
	require.NotNil(t, rows)
	assert.Equal(t, 3, rows.RowCount)
	assert.Equal(t, []string{"id", "name"}, rows.Columns)

	assert.Equal(t, []string{d.TableExistsQuery(), d.ColumnsQuery(), top}, d.session.queries)
	assert.Equal(t, []any{5}, d.session.args[2])
	assert.NotContains(t, top, "5")
}

func TestFetchRowsIgnoresStructureFailure(t *testing.T) {
	m, d, logs := connected(t)
	d.session.results[d.TableExistsQuery()] = table([]string{""}, []any{int64(1)})
	d.session.errs[d.ColumnsQuery()] = errors.New("catalog locked")

	rows := m.FetchRows(context.Background(), EmployeesTable, 2)
	assert.NotNil(t, rows)
	assert.NoError(t, m.Err())
	assert.Contains(t, logs.String(), "Could not read table structure")
}

func TestFetchRowsNegativeLimit(t *testing.T) {
	m, d, _ := connected(t)

	assert.Nil(t, m.FetchRows(context.Background(), EmployeesTable, -1))
	assert.Empty(t, d.session.queries)
	assert.Error(t, m.Err())
}

func TestExecuteQueryPassesTextVerbatim(t *testing.T) {
	m, d, _ := connected(t)
	q := "SELECT COUNT(*) AS total FROM Employees WHERE name = 'O''Brien'"
	d.session.results[q] = table([]string{"total"}, []any{int64(0)})

	result := m.ExecuteQuery(context.Background(), q)
	require.NotNil(t, result)
	assert.Equal(t, [][]any{{int64(0)}}, result.Rows)
	assert.Equal(t, []string{q}, d.session.queries)
	assert.Empty(t, d.session.args[0])
}

func TestExecuteQueryFailure(t *testing.T) {
	m, d, logs := connected(t)
	d.session.errs["SELEC 1"] = errors.New("syntax error")

	assert.Nil(t, m.ExecuteQuery(context.Background(), "SELEC 1"))

	var qErr *ErrQuery
	require.ErrorAs(t, m.Err(), &qErr)
	assert.Equal(t, "SELEC 1", qErr.Query)
	assert.Contains(t, logs.String(), "Error executing custom query")
}

func TestDriverPanicIsRecovered(t *testing.T) {
	m, d, logs := connected(t)
	d.session.panicOn = "SELECT 1 AS test"

	var ok bool
	assert.NotPanics(t, func() { ok = m.TestConnection(context.Background()) })
	assert.False(t, ok)

	var unexpected *ErrUnexpected
	require.ErrorAs(t, m.Err(), &unexpected)
	assert.Equal(t, "connection test", unexpected.Op)
	assert.Contains(t, logs.String(), "Unexpected error")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unconnected", StateUnconnected.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "closed", StateClosed.String())
}
