package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joacominatel/dbprobe/internal/app"
	"github.com/joacominatel/dbprobe/internal/config"
	"github.com/joacominatel/dbprobe/internal/database"
	"github.com/joacominatel/dbprobe/internal/database/postgres"
	"github.com/joacominatel/dbprobe/internal/database/sqlite"
	"github.com/joacominatel/dbprobe/internal/database/sqlserver"
	"github.com/joacominatel/dbprobe/internal/render"
	"github.com/joacominatel/dbprobe/internal/secret"
	"github.com/joacominatel/dbprobe/internal/tui"
	"github.com/joacominatel/dbprobe/internal/tui/theme"
)

var (
	tableName string
	rowLimit  int
	queryText string
)

func addProbeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&tableName, "table", "t", app.EmployeesTable, "table to inspect and fetch rows from")
	cmd.Flags().IntVarP(&rowLimit, "limit", "n", 5, "maximum number of rows to fetch")
	cmd.Flags().StringVarP(&queryText, "query", "q", "", "query to run after the fetch (default: row count of --table)")
}

func driverFor(name string) (database.Driver, error) {
	switch name {
	case config.DriverSQLServer:
		return sqlserver.New(), nil
	case config.DriverPostgres:
		return postgres.New(), nil
	case config.DriverSQLite:
		return sqlite.New(), nil
	}
	return nil, fmt.Errorf("unknown driver %q", name)
}

// session carries what a command needs after its settings are resolved.
type session struct {
	manager *app.Manager
	conn    config.Connection
	format  render.Format
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	conn, err := config.Resolve(cfg, profileName, cmd.Flags())
	if err != nil {
		return nil, err
	}
	resolvePassword(&conn)

	f := format
	if f == "" {
		f = cfg.Preferences.Format
	}
	outFormat, err := render.ParseFormat(f)
	if err != nil {
		return nil, err
	}

	driver, err := driverFor(conn.Driver)
	if err != nil {
		return nil, err
	}

	return &session{
		manager: app.NewManager(conn, driver, logger),
		conn:    conn,
		format:  outFormat,
	}, nil
}

// resolvePassword falls back to the OS keyring when no password was supplied.
func resolvePassword(conn *config.Connection) {
	if conn.Password != "" || conn.Driver == config.DriverSQLite {
		return
	}

	pw, err := secret.Get(conn.KeyringAccount())
	switch {
	case errors.Is(err, secret.ErrNotFound):
		logger.Debug().Str("account", conn.KeyringAccount()).Msg("No password in keyring")
	case err != nil:
		logger.Warn().Err(err).Msg("Could not read password from keyring")
	default:
		conn.Password = pw
	}
}

// connect opens and verifies the session, printing a short message on failure.
func (s *session) connect(ctx context.Context, cmd *cobra.Command) error {
	if !s.manager.Connect(ctx) {
		return s.report(ctx, cmd, "Failed to connect to the database. Please check your credentials and network connectivity.")
	}
	if !s.manager.TestConnection(ctx) {
		return s.report(ctx, cmd, "Connection test failed.")
	}
	return nil
}

func (s *session) report(ctx context.Context, cmd *cobra.Command, msg string) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(cmd.ErrOrStderr(), theme.StyleMuted.Render("\nOperation cancelled by user."))
		return errCancelled
	}
	fmt.Fprintln(cmd.ErrOrStderr(), theme.StyleError.Render(msg))
	if err := s.manager.Err(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), theme.StyleMuted.Render("  "+err.Error()))
	}
	return errReported
}

func (s *session) show(cmd *cobra.Command, title string, t *database.ResultTable) error {
	if interactive {
		return tui.Browse(title, s.conn.DisplayString(), t)
	}
	fmt.Fprintln(cmd.OutOrStdout(), theme.StyleTitle.Render(title))
	if err := render.Table(cmd.OutOrStdout(), t, s.format); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// runProbe connects, tests, fetches rows, runs the count query and closes.
func runProbe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.manager.Close()

	if err := s.connect(ctx, cmd); err != nil {
		return err
	}

	var failed bool

	rows := s.manager.FetchRows(ctx, tableName, rowLimit)
	if rows == nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return s.report(ctx, cmd, "")
		}
		fmt.Fprintln(cmd.ErrOrStderr(), theme.StyleMuted.Render("No data received or table is empty."))
		failed = true
	} else if err := s.show(cmd, tableName, rows); err != nil {
		return err
	}

	query := queryText
	if query == "" {
		query = "SELECT COUNT(*) AS TotalRows FROM " + s.manager.Dialect().QuoteIdent(tableName)
	}

	counts := s.manager.ExecuteQuery(ctx, query)
	if counts == nil {
		return s.report(ctx, cmd, "Query failed.")
	}
	if err := s.show(cmd, "Query result", counts); err != nil {
		return err
	}

	if failed {
		return errReported
	}
	return nil
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [table]",
		Short: "List the columns of a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := app.EmployeesTable
			if len(args) == 1 {
				table = args[0]
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.manager.Close()

			if err := s.connect(ctx, cmd); err != nil {
				return err
			}

			cols, ok := s.manager.TableInfo(ctx, table)
			if !ok {
				return s.report(ctx, cmd, "Could not read the table structure.")
			}
			if len(cols) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), theme.StyleMuted.Render(fmt.Sprintf("Table %q has no columns or does not exist.", table)))
				return errReported
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.StyleTitle.Render(table))
			return render.Columns(cmd.OutOrStdout(), cols, s.format)
		},
	}
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query SQL",
		Short: "Run a query and print its rows",
		Long: `Run a query and print its rows.

The text is sent to the server exactly as given. Nothing is escaped or bound,
so never build it from untrusted input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.manager.Close()

			if err := s.connect(ctx, cmd); err != nil {
				return err
			}

			result := s.manager.ExecuteQuery(ctx, args[0])
			if result == nil {
				return s.report(ctx, cmd, "Query failed.")
			}
			return s.show(cmd, "Query result", result)
		},
	}
}
