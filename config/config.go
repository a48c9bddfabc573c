// Package config provides configuration management for VPN Connector.
// It handles loading, saving, and managing application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/yllada/vpn-connector/common"
)

// EnvPrefix is the prefix of environment overrides. Sections are separated
// by a double underscore: VPNC_CONNECTION__SERVER_ADDRESS.
const EnvPrefix = "VPNC_"

// Config represents the application configuration.
// It is persisted as YAML in the user's config directory.
type Config struct {
	Connection    ConnectionConfig    `yaml:"connection" koanf:"connection"`
	Dialer        DialerConfig        `yaml:"dialer" koanf:"dialer"`
	Probe         ProbeConfig         `yaml:"probe" koanf:"probe"`
	Wait          WaitConfig          `yaml:"wait" koanf:"wait"`
	PhoneBook     PhoneBookConfig     `yaml:"phonebook" koanf:"phonebook"`
	Monitor       MonitorConfig       `yaml:"monitor" koanf:"monitor"`
	Log           LogConfig           `yaml:"log" koanf:"log"`
	Notifications NotificationsConfig `yaml:"notifications" koanf:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics" koanf:"metrics"`
}

// ConnectionConfig identifies the managed entry. The password is never
// stored here; it lives in the keyring.
type ConnectionConfig struct {
	ServerAddress string `yaml:"server_address" koanf:"server_address"`
	// Name is the phonebook entry name. Empty means ServerAddress.
	Name     string `yaml:"name" koanf:"name"`
	Username string `yaml:"username" koanf:"username"`
	// Protocol is "sstp" or "ikev2".
	Protocol string `yaml:"protocol" koanf:"protocol"`
	// SavePassword stores prompted passwords in the keyring.
	SavePassword bool `yaml:"save_password" koanf:"save_password"`
}

// DialerConfig configures the dial helper.
type DialerConfig struct {
	// Path overrides the rasdial.exe location.
	Path string `yaml:"path" koanf:"path"`
}

// ProbeConfig configures connectivity detection.
type ProbeConfig struct {
	// Mode is "adapter", "interface" or "substring". Empty picks the
	// platform default.
	Mode string `yaml:"mode" koanf:"mode"`
	// Adapter is the adapter or interface name to look for. Empty means
	// the connection name.
	Adapter string        `yaml:"adapter" koanf:"adapter"`
	Command []string      `yaml:"command,omitempty" koanf:"command"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
	Marker  string        `yaml:"marker" koanf:"marker"`
}

// WaitConfig configures polling after connect and disconnect.
type WaitConfig struct {
	TimeoutSeconds int           `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	Interval       time.Duration `yaml:"interval" koanf:"interval"`
}

// PhoneBookConfig selects the phonebook backend.
type PhoneBookConfig struct {
	Backend string `yaml:"backend" koanf:"backend"`
	Path    string `yaml:"path" koanf:"path"`
}

// MonitorConfig configures the background monitor used by watch and tray.
type MonitorConfig struct {
	CheckInterval        time.Duration `yaml:"check_interval" koanf:"check_interval"`
	FailureThreshold     int           `yaml:"failure_threshold" koanf:"failure_threshold"`
	AutoReconnect        bool          `yaml:"auto_reconnect" koanf:"auto_reconnect"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay" koanf:"reconnect_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" koanf:"max_reconnect_attempts"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level      string `yaml:"level" koanf:"level"`
	File       bool   `yaml:"file" koanf:"file"`
	Dir        string `yaml:"dir" koanf:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" koanf:"max_backups"`
}

// NotificationsConfig toggles desktop notifications.
type NotificationsConfig struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address is the listen address; empty disables the endpoint.
	Address string `yaml:"address" koanf:"address"`
}

// DefaultConfig returns the default configuration.
// These are sensible defaults for most users.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Protocol: "sstp",
		},
		Probe: ProbeConfig{
			Timeout: common.ProbeTimeout,
			Marker:  common.ActiveMarker,
		},
		Wait: WaitConfig{
			TimeoutSeconds: common.DefaultTimeoutSeconds,
			Interval:       common.PollInterval,
		},
		PhoneBook: PhoneBookConfig{
			Backend: common.PhoneBookPBK,
		},
		Monitor: MonitorConfig{
			CheckInterval:        common.MonitorInterval,
			FailureThreshold:     3,
			AutoReconnect:        false,
			ReconnectDelay:       common.ReconnectDelay,
			MaxReconnectAttempts: 5,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
	}
}

// DefaultPath returns the config file location in the user config dir.
func DefaultPath() (string, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, common.ConfigFileName), nil
}

// Load reads the configuration. Defaults are overlaid by the YAML file at
// path (skipped when it does not exist) and then by VPNC_ environment
// variables. An empty path selects DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, common.WrapError(common.ErrConfigLoad, err.Error())
		}
		path = p
	}

	k := koanf.New(".")

	if common.FileExists(path) {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrConfigLoad, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", common.ErrConfigLoad, err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}

	cfg.validate()
	return cfg, nil
}

// envKey maps VPNC_WAIT__TIMEOUT_SECONDS to wait.timeout_seconds.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// validate replaces out-of-range values with defaults.
func (c *Config) validate() {
	def := DefaultConfig()

	switch strings.ToLower(c.Connection.Protocol) {
	case "sstp", "ikev2":
		c.Connection.Protocol = strings.ToLower(c.Connection.Protocol)
	default:
		common.LogWarn("Unknown protocol %q, using %s", c.Connection.Protocol, def.Connection.Protocol)
		c.Connection.Protocol = def.Connection.Protocol
	}

	switch strings.ToLower(c.Probe.Mode) {
	case "", common.ProbeModeAdapter, common.ProbeModeInterface, common.ProbeModeSubstring:
		c.Probe.Mode = strings.ToLower(c.Probe.Mode)
	default:
		common.LogWarn("Unknown probe mode %q, using platform default", c.Probe.Mode)
		c.Probe.Mode = ""
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = def.Probe.Timeout
	}
	if c.Probe.Marker == "" {
		c.Probe.Marker = def.Probe.Marker
	}

	if c.Wait.TimeoutSeconds <= 0 {
		c.Wait.TimeoutSeconds = def.Wait.TimeoutSeconds
	}
	if c.Wait.Interval <= 0 {
		c.Wait.Interval = def.Wait.Interval
	}

	switch strings.ToLower(c.PhoneBook.Backend) {
	case common.PhoneBookPBK, common.PhoneBookSQLite, common.PhoneBookMemory:
		c.PhoneBook.Backend = strings.ToLower(c.PhoneBook.Backend)
	default:
		common.LogWarn("Unknown phonebook backend %q, using %s", c.PhoneBook.Backend, def.PhoneBook.Backend)
		c.PhoneBook.Backend = def.PhoneBook.Backend
	}

	if c.Monitor.CheckInterval <= 0 {
		c.Monitor.CheckInterval = def.Monitor.CheckInterval
	}
	if c.Monitor.FailureThreshold <= 0 {
		c.Monitor.FailureThreshold = def.Monitor.FailureThreshold
	}
	if c.Monitor.ReconnectDelay < 0 {
		c.Monitor.ReconnectDelay = def.Monitor.ReconnectDelay
	}
	if c.Monitor.MaxReconnectAttempts < 0 {
		c.Monitor.MaxReconnectAttempts = 0
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
		c.Log.Level = strings.ToLower(c.Log.Level)
	default:
		c.Log.Level = def.Log.Level
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = def.Log.MaxBackups
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error serializing configuration: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path, or to DefaultPath when empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return common.WrapError(common.ErrConfigSave, err.Error())
		}
		path = p
	}

	// Create directory if it doesn't exist
	if err := common.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: error creating config directory: %v", common.ErrConfigSave, err)
	}

	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	return nil
}

// LoggerConfig converts the log section for common.InitLogger.
func (c *Config) LoggerConfig(verbose bool) common.LogConfig {
	level := common.ParseLogLevel(c.Log.Level)
	if verbose {
		level = common.LevelDebug
	}
	return common.LogConfig{
		Level:       level,
		EnableFile:  c.Log.File,
		Dir:         c.Log.Dir,
		MaxFileSize: int64(c.Log.MaxSizeMB) * 1024 * 1024,
		MaxBackups:  c.Log.MaxBackups,
	}
}
