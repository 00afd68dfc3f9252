package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configDir  = ".dbprobe"
	configFile = "config"
	configType = "yaml"

	// EnvPrefix prefixes every environment variable read by Resolve.
	EnvPrefix = "DBPROBE"
)

// overlayKeys are the connection settings that the environment and command
// line flags may override.
var overlayKeys = []string{
	"driver",
	"host",
	"port",
	"database",
	"username",
	"password",
	"sslmode",
	"connect_timeout",
}

// DefaultPath returns ~/.dbprobe/config.yaml.
func DefaultPath() (string, error) {
	dir, err := configDirPath()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, configFile+"."+configType), nil
}

// Load reads the configuration from path, or from ~/.dbprobe/config.yaml when
// path is empty. Returns an empty config if the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	v.SetDefault("preferences.format", "plain")

	cfg := &Config{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			cfg.Preferences.Format = "plain"
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := v.UnmarshalKey("preferences", &cfg.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshal preferences: %w", err)
	}

	raw, _ := v.Get("connections").([]any)
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("connections[%d]: expected a mapping", i)
		}
		conn, err := decodeConnection(m)
		if err != nil {
			return nil, fmt.Errorf("connections[%d]: %w", i, err)
		}
		cfg.Connections = append(cfg.Connections, conn)
	}

	return cfg, nil
}

// Save writes the configuration to path, or to ~/.dbprobe/config.yaml when
// path is empty. Passwords are never written.
func Save(path string, cfg *Config) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	conns := make([]map[string]any, 0, len(cfg.Connections))
	for _, c := range cfg.Connections {
		conns = append(conns, c.settings())
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("connections", conns)
	v.Set("preferences", map[string]any{
		"default_connection": cfg.Preferences.DefaultConnection,
		"format":             cfg.Preferences.Format,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Resolve picks the named profile (or the default one) and applies
// environment and command line overrides. Flags win over the environment,
// which wins over the profile. Only flags that were set are considered.
func Resolve(cfg *Config, profile string, flags *pflag.FlagSet) (Connection, error) {
	var conn Connection
	switch {
	case profile != "":
		p := cfg.Lookup(profile)
		if p == nil {
			return Connection{}, fmt.Errorf("no connection profile named %q", profile)
		}
		conn = *p
	case DefaultConnection(cfg) != nil:
		conn = *DefaultConnection(cfg)
	default:
		var err error
		if conn, err = decodeConnection(nil); err != nil {
			return Connection{}, err
		}
	}

	ov := viper.New()
	ov.SetEnvPrefix(EnvPrefix)
	for _, key := range overlayKeys {
		if err := ov.BindEnv(key); err != nil {
			return Connection{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if flags != nil {
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			if isOverlayKey(f.Name) && bindErr == nil {
				bindErr = ov.BindPFlag(f.Name, f)
			}
		})
		if bindErr != nil {
			return Connection{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	previousDriver := conn.Driver
	if ov.IsSet("driver") {
		conn.Driver = ov.GetString("driver")
	}
	if ov.IsSet("host") {
		conn.Host = ov.GetString("host")
	}
	if ov.IsSet("database") {
		conn.Database = ov.GetString("database")
	}
	if ov.IsSet("username") {
		conn.Username = ov.GetString("username")
	}
	if ov.IsSet("password") {
		conn.Password = ov.GetString("password")
	}
	if ov.IsSet("sslmode") {
		conn.SSLMode = ov.GetString("sslmode")
	}
	if ov.IsSet("connect_timeout") {
		conn.ConnectTimeout = ov.GetDuration("connect_timeout")
	}

	switch {
	case ov.IsSet("port"):
		conn.Port = ov.GetInt("port")
	case conn.Port == 0 || (conn.Driver != previousDriver && conn.Port == DefaultPort(previousDriver)):
		conn.Port = DefaultPort(conn.Driver)
	}

	return conn, nil
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultConnection != "" {
		if c := cfg.Lookup(cfg.Preferences.DefaultConnection); c != nil {
			return c
		}
	}

	return &cfg.Connections[0]
}

// decodeConnection applies the connection defaults underneath a raw profile.
func decodeConnection(raw map[string]any) (Connection, error) {
	v := viper.New()
	v.SetDefault("driver", DriverSQLServer)
	v.SetDefault("encrypt", true)
	v.SetDefault("trust_server_certificate", true)
	v.SetDefault("connect_timeout", DefaultConnectTimeout)

	if raw != nil {
		if err := v.MergeConfigMap(raw); err != nil {
			return Connection{}, fmt.Errorf("merge: %w", err)
		}
	}

	var conn Connection
	if err := v.Unmarshal(&conn); err != nil {
		return Connection{}, fmt.Errorf("unmarshal: %w", err)
	}
	if conn.Port == 0 {
		conn.Port = DefaultPort(conn.Driver)
	}
	return conn, nil
}

func (c Connection) settings() map[string]any {
	m := map[string]any{
		"name":                     c.Name,
		"driver":                   c.Driver,
		"host":                     c.Host,
		"port":                     c.Port,
		"database":                 c.Database,
		"username":                 c.Username,
		"encrypt":                  c.Encrypt,
		"trust_server_certificate": c.TrustServerCertificate,
		"connect_timeout":          c.Timeout().String(),
	}
	if c.SSLMode != "" {
		m["sslmode"] = c.SSLMode
	}
	return m
}

func isOverlayKey(name string) bool {
	for _, k := range overlayKeys {
		if k == name {
			return true
		}
	}
	return false
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
