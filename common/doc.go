// Package common provides shared constants, types, utilities, and interfaces
// used throughout the VPN Connector application.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: helper names, probe markers, timeouts and file names
//   - Errors: Sentinel errors for consistent error handling across packages
//   - Interfaces: Abstractions for credential storage, notifications and logging
//   - Logger: Leveled logging with optional rotated file output
//   - Utils: Small helpers for paths and strings
//
// # Usage
//
//	// Use constants
//	timeout := common.DefaultTimeoutSeconds
//
//	// Use logger
//	common.LogInfo("Dialing %s", entryName)
//
//	// Check errors
//	if errors.Is(err, common.ErrDeviceNotFound) {
//	    // No WAN miniport for the protocol
//	}
package common
