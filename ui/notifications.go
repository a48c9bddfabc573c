// Package ui provides the system tray and desktop notifications for VPN Connector.
// This file contains the notification system for connection events.
package ui

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/vpn-connector/common"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod      = notificationsDest + ".Notify"
	expireDefault     = int32(-1)
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotificationInfo NotificationType = iota
	NotificationSuccess
	NotificationWarning
	NotificationError
)

// urgency maps a type onto the freedesktop urgency hint.
func (t NotificationType) urgency() byte {
	switch t {
	case NotificationError:
		return 2 // critical
	case NotificationWarning:
		return 1 // normal
	default:
		return 0 // low
	}
}

func (t NotificationType) defaultIcon() string {
	switch t {
	case NotificationWarning:
		return "dialog-warning"
	case NotificationError:
		return "dialog-error"
	default:
		return "network-vpn"
	}
}

// Notification represents a system notification
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Icon    string
}

// caller is the part of dbus.BusObject the notifier needs.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier sends notifications over the org.freedesktop.Notifications
// D-Bus interface. Each notification replaces the previous one so status
// changes do not pile up. Without a session bus, notifications are logged.
type Notifier struct {
	appName string
	enabled bool

	mu     sync.Mutex
	obj    caller
	dialed bool
	lastID uint32
}

// NewNotifier creates a notifier. A disabled notifier only logs.
func NewNotifier(enabled bool) *Notifier {
	return &Notifier{appName: common.AppName, enabled: enabled}
}

func (n *Notifier) object() caller {
	if n.dialed {
		return n.obj
	}
	n.dialed = true

	conn, err := dbus.SessionBus()
	if err != nil {
		common.LogDebug("No D-Bus session bus, notifications will be logged: %v", err)
		return nil
	}
	n.obj = conn.Object(notificationsDest, notificationsPath)
	return n.obj
}

// Show displays a notification.
func (n *Notifier) Show(note Notification) error {
	if !n.enabled {
		common.LogDebug("Notification (disabled): %s: %s", note.Title, note.Message)
		return nil
	}

	icon := note.Icon
	if icon == "" {
		icon = note.Type.defaultIcon()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	obj := n.object()
	if obj == nil {
		common.LogInfo("%s: %s", note.Title, note.Message)
		return nil
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(note.Type.urgency()),
	}
	call := obj.Call(notifyMethod, 0,
		n.appName, n.lastID, icon, note.Title, note.Message,
		[]string{}, hints, expireDefault)
	if call.Err != nil {
		common.LogWarn("Error showing notification: %v", call.Err)
		return call.Err
	}

	var id uint32
	if err := call.Store(&id); err == nil {
		n.lastID = id
	}
	return nil
}

// Notify sends an informational notification.
func (n *Notifier) Notify(title, message string) error {
	return n.Show(Notification{Title: title, Message: message})
}

// NotifyWithIcon sends a notification with a custom icon.
func (n *Notifier) NotifyWithIcon(title, message, icon string) error {
	return n.Show(Notification{Title: title, Message: message, Icon: icon})
}

// NotifyConnected shows a notification when the VPN connects.
func (n *Notifier) NotifyConnected(name string) {
	_ = n.Show(Notification{
		Title:   "VPN Connected",
		Message: "Connected to " + name,
		Type:    NotificationSuccess,
		Icon:    "network-vpn",
	})
}

// NotifyDisconnected shows a notification when the VPN disconnects.
func (n *Notifier) NotifyDisconnected(name string) {
	_ = n.Show(Notification{
		Title:   "VPN Disconnected",
		Message: "Disconnected from " + name,
		Type:    NotificationInfo,
		Icon:    "network-vpn-disconnected",
	})
}

// NotifyError shows a notification for connection errors.
func (n *Notifier) NotifyError(name, errorMsg string) {
	_ = n.Show(Notification{
		Title:   "Connection Error",
		Message: name + ": " + errorMsg,
		Type:    NotificationError,
		Icon:    "network-vpn-error",
	})
}

// NotifyConnecting shows a notification when the VPN is connecting.
func (n *Notifier) NotifyConnecting(name string) {
	_ = n.Show(Notification{
		Title:   "Connecting VPN",
		Message: "Connecting to " + name + "...",
		Type:    NotificationInfo,
		Icon:    "network-vpn-acquiring",
	})
}

var _ ConnectionNotifier = (*Notifier)(nil)
var _ common.Notifier = (*Notifier)(nil)
