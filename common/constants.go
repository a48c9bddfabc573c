// Package common provides shared constants, types, and utilities
// used across the VPN Connector application.
package common

import "time"

// Application metadata.
const (
	// AppID is the unique identifier for the application.
	AppID = "com.vpnconnector.app"
	// AppName is the display name of the application.
	AppName = "VPN Connector"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "vpn-connector"
	// KeyringService is the service name used for stored credentials.
	KeyringService = "vpn-connector"
)

// File names used by the application.
const (
	ConfigFileName      = "config.yaml"
	PhoneBookDBFileName = "phonebook.db"
	CredentialsFileName = ".credentials"
	LogFileName         = "vpn-connector.log"
)

// Dial helper and probe defaults.
const (
	// DialHelperName is the executable name of the dial helper.
	DialHelperName = "rasdial.exe"
	// HangUpFlag is the dial helper argument that disconnects an entry.
	HangUpFlag = "/d"
	// ActiveMarker is the substring the legacy probe looks for.
	ActiveMarker = "0.0.0.0"
)

// Default timeouts and intervals.
const (
	// DefaultTimeoutSeconds is the number of checks a wait performs.
	DefaultTimeoutSeconds = 10
	// PollInterval is the pause between two connectivity checks.
	PollInterval = 1 * time.Second
	// ProbeTimeout bounds a single network probe subprocess.
	ProbeTimeout = 15 * time.Second
	// MonitorInterval is how often the monitor samples connectivity.
	MonitorInterval = 5 * time.Second
	// ReconnectDelay is the delay before attempting to reconnect.
	ReconnectDelay = 5 * time.Second
)

// Probe modes.
const (
	ProbeModeAdapter   = "adapter"
	ProbeModeInterface = "interface"
	ProbeModeSubstring = "substring"
)

// Phonebook backends.
const (
	PhoneBookPBK    = "pbk"
	PhoneBookSQLite = "sqlite"
	PhoneBookMemory = "memory"
)
