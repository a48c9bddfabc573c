// Package common provides shared constants, types, and utilities
// used across the VPN Connector application.
package common

import "errors"

// Sentinel errors for VPN operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Connection errors.
	ErrHelperLaunch = errors.New("dial helper failed to launch")
	ErrTimeout      = errors.New("operation timed out")
	ErrCancelled    = errors.New("operation cancelled")
	ErrProbe        = errors.New("network probe failed")

	// Profile errors.
	ErrInvalidProfile = errors.New("invalid profile data")
	ErrDeviceNotFound = errors.New("no device found")

	// Configuration errors.
	ErrHelperNotFound = errors.New("dial helper not found")
	ErrConfigLoad     = errors.New("failed to load configuration")
	ErrConfigSave     = errors.New("failed to save configuration")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// Permission errors.
	ErrPermissionDenied = errors.New("permission denied")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
