// Package ui provides the user-facing surfaces of VPN Connector.
//
// This package implements:
//
//   - System tray indicator for the managed connection
//   - Interactive terminal watch view
//   - Desktop notifications
//   - Terminal styles shared by the CLI
//
// # Architecture
//
// Everything in this package drives a Controller, which *vpn.Connector
// satisfies. Key components:
//
//   - Application: wires a Controller, a vpn.Monitor and notifications
//     into the tray
//   - TrayIndicator: fyne.io/systray menu with connect, disconnect and
//     uptime
//   - WatchModel: bubbletea model showing live status and monitor events
//   - Notifier: org.freedesktop.Notifications over the D-Bus session bus
//
// # Threading
//
// Monitor callbacks run on the monitor goroutine. The watch view never
// touches its model from there; callbacks post messages on a buffered
// channel that the bubbletea program drains. Systray menu updates are
// safe from any goroutine.
//
// # File Organization
//
//   - app.go: tray application and monitor wiring
//   - tray.go: system tray indicator
//   - watch.go: terminal watch view
//   - icons.go: icon generation for tray
//   - styles.go: lipgloss styles
//   - notifications.go: desktop notification integration
package ui
