package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joacominatel/dbprobe/internal/logging"
	"github.com/joacominatel/dbprobe/internal/tui/theme"
)

var (
	version = "dev"
	commit  = "none"
)

// CLI flags
var (
	configPath  string
	profileName string
	verbosity   int
	logFile     string
	format      string
	interactive bool
)

var (
	logger    zerolog.Logger
	logCloser io.Closer
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("reported")

// errCancelled marks a workflow stopped by an interrupt.
var errCancelled = errors.New("cancelled")

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		switch {
		case errors.Is(err, errCancelled):
			os.Exit(130)
		case errors.Is(err, errReported):
		default:
			fmt.Fprintln(os.Stderr, theme.StyleError.Render("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dbprobe",
		Short: "Check a database connection and peek at a table",
		Long: `dbprobe connects to a database server, verifies the session with a round trip,
prints the structure and first rows of a table, runs a count (or a custom query)
and closes the session.

Connection settings come from flags, DBPROBE_* environment variables and profiles
in ~/.dbprobe/config.yaml. Passwords are read from DBPROBE_PASSWORD or the OS keyring.`,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: preRun,
		PersistentPostRun: postRun,
		RunE:              runProbe,
	}

	fs := rootCmd.PersistentFlags()
	fs.StringVar(&configPath, "config", "", "config `file` (default ~/.dbprobe/config.yaml)")
	fs.StringVarP(&profileName, "profile", "P", "", "connection profile to use")
	fs.String("driver", "", "database driver: sqlserver, postgres or sqlite")
	fs.StringP("host", "H", "", "database server host")
	fs.IntP("port", "p", 0, "database server port")
	fs.StringP("database", "d", "", "database name (file path for sqlite)")
	fs.StringP("username", "U", "", "user name")
	fs.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	fs.StringVar(&logFile, "log-file", "", "also write logs to this `file` (rotated)")
	fs.StringVarP(&format, "format", "f", "", "output format: plain or box")
	fs.BoolVarP(&interactive, "interactive", "i", false, "browse results in a scrollable viewer")

	addProbeFlags(rootCmd)

	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dbprobe %s (commit: %s)\n", version, commit)
		},
	})

	return rootCmd
}

func preRun(cmd *cobra.Command, args []string) error {
	logger, logCloser = logging.Setup(logging.Options{
		Verbosity: verbosity,
		File:      logFile,
	})
	logger.Debug().Int("pid", os.Getpid()).Str("command", cmd.CommandPath()).Msg("dbprobe starting")
	return nil
}

func postRun(cmd *cobra.Command, args []string) {
	logger.Debug().Int("pid", os.Getpid()).Msg("dbprobe done")
}
