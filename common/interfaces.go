// Package common provides shared constants, types, and utilities
// used across the VPN Connector application.
package common

// ConnectionStatus represents the observed state of the VPN connection.
// It is always derived from a probe, never remembered.
type ConnectionStatus int

const (
	StatusUnknown ConnectionStatus = iota
	StatusDisconnected
	StatusConnecting
	StatusConnected
	StatusDisconnecting
	StatusError
)

// String returns a human-readable status string.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected"
	case StatusDisconnecting:
		return "Disconnecting..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StatusFromActive maps a probe result onto a ConnectionStatus.
func StatusFromActive(active bool) ConnectionStatus {
	if active {
		return StatusConnected
	}
	return StatusDisconnected
}

// CredentialStore defines the interface for credential storage.
// Implementations may use system keyring, encrypted files, etc.
type CredentialStore interface {
	// Store saves the password for a connection.
	Store(name, password string) error
	// Get retrieves the password for a connection.
	Get(name string) (string, error)
	// Delete removes the password for a connection.
	Delete(name string) error
	// Exists reports whether a password is stored for a connection.
	Exists(name string) bool
}

// Notifier defines the interface for sending notifications.
type Notifier interface {
	// Notify sends a notification with the given title and message.
	Notify(title, message string) error
	// NotifyWithIcon sends a notification with a custom icon.
	NotifyWithIcon(title, message, icon string) error
}

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...interface{})
	// Info logs an informational message.
	Info(msg string, args ...interface{})
	// Warn logs a warning message.
	Warn(msg string, args ...interface{})
	// Error logs an error message.
	Error(msg string, args ...interface{})
}
