package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	_ "github.com/joacominatel/dbprobe/internal/database/sqlite"
)

func seedEmployees(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hr.db")

	db := sqlx.MustConnect("sqlite", path)
	defer db.Close()
	db.MustExec(`CREATE TABLE Employees (id INTEGER NOT NULL, name VARCHAR(50))`)
	db.MustExec(`INSERT INTO Employees (id, name) VALUES (1, 'Ada'), (2, 'Grace'), (3, 'Edsger')`)
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"DRIVER", "HOST", "PORT", "DATABASE", "USERNAME", "PASSWORD"} {
		t.Setenv("DBPROBE_"+key, "")
	}

	// Package level flag variables survive between runs.
	configPath, profileName, format, queryText = "", "", "", ""
	verbosity, interactive = 0, false

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestProbeWorkflow(t *testing.T) {
	db := seedEmployees(t)

	out, _, err := run(t, "--driver", "sqlite", "--database", db, "--limit", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "Grace")
	assert.NotContains(t, out, "Edsger")
	assert.Contains(t, out, "TotalRows")
	assert.Contains(t, out, "3")
}

func TestProbeMissingTable(t *testing.T) {
	db := seedEmployees(t)

	out, stderr, err := run(t, "--driver", "sqlite", "--database", db, "--table", "Payroll", "--query", "SELECT 1 AS one")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "No data received or table is empty.")
	assert.Contains(t, out, "one")
}

func TestProbeUnknownDriver(t *testing.T) {
	_, stderr, err := run(t, "--driver", "oracle", "--database", "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errReported)
	assert.Empty(t, stderr)
}

func TestProbeConnectFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-dir", "hr.db")

	out, stderr, err := run(t, "--driver", "sqlite", "--database", missing)
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Failed to connect to the database. Please check your credentials and network connectivity.")
	assert.NotContains(t, stderr, "Connection test failed.")
	assert.Empty(t, out)
}

func TestDescribe(t *testing.T) {
	db := seedEmployees(t)

	out, _, err := run(t, "describe", "--driver", "sqlite", "--database", db)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"id", "integer", "NO"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"name", "varchar", "YES", "50"}, strings.Fields(lines[3]))
}

func TestQueryCommand(t *testing.T) {
	db := seedEmployees(t)

	out, _, err := run(t, "query", "SELECT name FROM Employees WHERE id = 3", "--driver", "sqlite", "--database", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Edsger")
	assert.NotContains(t, out, "Ada")
}

func TestProfileAddAndList(t *testing.T) {
	keyring.MockInit()
	home := t.TempDir()
	cfgPath := filepath.Join(home, "config.yaml")

	root := newRootCmd()
	t.Setenv("HOME", home)
	configPath, profileName, format = "", "", ""
	root.SetArgs([]string{"profile", "add", "azure", "--config", cfgPath,
		"--host", "tcp:probe.example.net", "--database", "test_db", "--username", "probe",
		"--password-stdin", "--default"})
	root.SetIn(strings.NewReader("placeholder-password\n"))
	var out bytes.Buffer
	root.SetOut(&out)
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Saved profile azure")

	pw, err := keyring.Get("dbprobe", "sqlserver://probe@probe.example.net:1433/test_db")
	require.NoError(t, err)
	assert.Equal(t, "placeholder-password", pw)

	out.Reset()
	root = newRootCmd()
	root.SetArgs([]string{"profile", "list", "--config", cfgPath})
	root.SetOut(&out)
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "* azure")
	assert.Contains(t, out.String(), "probe@probe.example.net:1433/test_db")
}
