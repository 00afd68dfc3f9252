package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Supported driver names.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// DefaultConnectTimeout bounds a connect attempt when none is configured.
const DefaultConnectTimeout = 30 * time.Second

// Config represents the application configuration.
type Config struct {
	Connections []Connection `mapstructure:"connections" yaml:"connections"`
	Preferences Preferences  `mapstructure:"preferences" yaml:"preferences"`
}

// Connection represents a saved database connection profile.
// Passwords are resolved at run time and never saved.
type Connection struct {
	Name                   string        `mapstructure:"name" yaml:"name"`
	Driver                 string        `mapstructure:"driver" yaml:"driver"`
	Host                   string        `mapstructure:"host" yaml:"host"`
	Port                   int           `mapstructure:"port" yaml:"port"`
	Database               string        `mapstructure:"database" yaml:"database"`
	Username               string        `mapstructure:"username" yaml:"username"`
	Password               string        `mapstructure:"-" yaml:"-"`
	SSLMode                string        `mapstructure:"sslmode" yaml:"sslmode,omitempty"`
	Encrypt                bool          `mapstructure:"encrypt" yaml:"encrypt"`
	TrustServerCertificate bool          `mapstructure:"trust_server_certificate" yaml:"trust_server_certificate"`
	ConnectTimeout         time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// Preferences holds user preferences.
type Preferences struct {
	DefaultConnection string `mapstructure:"default_connection" yaml:"default_connection"`
	Format            string `mapstructure:"format" yaml:"format"`
}

// DefaultPort returns the server's well-known port for a driver.
func DefaultPort(driver string) int {
	switch driver {
	case DriverSQLServer:
		return 1433
	case DriverPostgres:
		return 5432
	}
	return 0
}

// Validate reports the first problem that would stop a connect attempt.
func (c Connection) Validate() error {
	switch c.Driver {
	case DriverSQLServer, DriverPostgres:
		if c.host() == "" {
			return fmt.Errorf("%s: host is required", c.Driver)
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("%s: port %d out of range", c.Driver, c.Port)
		}
	case DriverSQLite:
	case "":
		return fmt.Errorf("driver is required")
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.Database == "" {
		return fmt.Errorf("%s: database is required", c.Driver)
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect timeout must not be negative")
	}
	return nil
}

// Timeout returns the connect timeout, falling back to the default.
func (c Connection) Timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}

// timeoutSeconds rounds the timeout up to whole seconds. Drivers read 0 as
// no timeout, so it is never below 1.
func (c Connection) timeoutSeconds() string {
	secs := int((c.Timeout() + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// DSN builds the driver-specific connection string for the profile.
func (c Connection) DSN() string {
	switch c.Driver {
	case DriverPostgres:
		return c.postgresDSN()
	case DriverSQLite:
		return c.Database
	default:
		return c.sqlServerDSN()
	}
}

func (c Connection) sqlServerDSN() string {
	q := url.Values{}
	q.Set("database", c.Database)
	q.Set("encrypt", strconv.FormatBool(c.Encrypt))
	q.Set("TrustServerCertificate", strconv.FormatBool(c.TrustServerCertificate))
	q.Set("connection timeout", c.timeoutSeconds())
	q.Set("dial timeout", c.timeoutSeconds())
	q.Set("app name", "dbprobe")

	u := url.URL{
		Scheme:   "sqlserver",
		Host:     c.hostPort(),
		RawQuery: q.Encode(),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

func (c Connection) postgresDSN() string {
	q := url.Values{}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
		if c.Encrypt {
			sslmode = "require"
		}
	}
	q.Set("sslmode", sslmode)
	q.Set("connect_timeout", c.timeoutSeconds())

	u := url.URL{
		Scheme:   "postgresql",
		Host:     c.hostPort(),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	return u.String()
}

// host strips an Azure style "tcp:" prefix.
func (c Connection) host() string {
	return strings.TrimPrefix(c.Host, "tcp:")
}

func (c Connection) hostPort() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort(c.Driver)
	}
	if port == 0 {
		return c.host()
	}
	return c.host() + ":" + strconv.Itoa(port)
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	if c.Driver == DriverSQLite {
		return "sqlite:" + c.Database
	}
	s := c.hostPort() + "/" + c.Database
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return s
}

// KeyringAccount names the keyring entry holding this connection's password,
// as driver://user@host:port/database.
func (c Connection) KeyringAccount() string {
	return c.Driver + "://" + c.DisplayString()
}

// HasConnection checks if a connection with the given name already exists.
func (cfg *Config) HasConnection(name string) bool {
	return cfg.Lookup(name) != nil
}

// Lookup returns the named connection, or nil.
func (cfg *Config) Lookup(name string) *Connection {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name == name {
			return &cfg.Connections[i]
		}
	}
	return nil
}

// AddConnection appends a connection, replacing one with the same name.
func (cfg *Config) AddConnection(conn Connection) {
	conn.Password = ""
	if existing := cfg.Lookup(conn.Name); existing != nil {
		*existing = conn
		return
	}
	cfg.Connections = append(cfg.Connections, conn)
}

// RemoveConnection deletes the named connection and clears it as the default.
func (cfg *Config) RemoveConnection(name string) (Connection, bool) {
	for i, c := range cfg.Connections {
		if c.Name == name {
			cfg.Connections = append(cfg.Connections[:i], cfg.Connections[i+1:]...)
			if cfg.Preferences.DefaultConnection == name {
				cfg.Preferences.DefaultConnection = ""
			}
			return c, true
		}
	}
	return Connection{}, false
}
