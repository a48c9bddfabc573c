// Package ui provides the system tray and desktop notifications for VPN Connector.
// This file contains the system tray indicator functionality.
package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/systray"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

// Controller is the part of vpn.Connector the tray drives.
type Controller interface {
	Profile() vpn.Profile
	CreateOrUpdate(ctx context.Context) error
	TryConnect(ctx context.Context) vpn.Result
	TryDisconnect(ctx context.Context) vpn.Result
	IsActive(ctx context.Context) (bool, error)
}

// ConnectionNotifier announces connection changes to the user.
type ConnectionNotifier interface {
	NotifyConnecting(name string)
	NotifyConnected(name string)
	NotifyDisconnected(name string)
	NotifyError(name, errorMsg string)
}

// trayMenu draws the tray state.
type trayMenu interface {
	SetStatus(status common.ConnectionStatus, name string)
	SetUptime(d time.Duration)
}

// TrayIndicator manages the system tray icon and menu for the
// single managed connection.
type TrayIndicator struct {
	ctrl     Controller
	monitor  *vpn.Monitor
	notifier ConnectionNotifier

	ctx    context.Context
	cancel context.CancelFunc

	disconnectOnExit bool

	mu          sync.Mutex
	menu        trayMenu
	status      common.ConnectionStatus
	connectTime time.Time
	uptimeStop  chan struct{}
}

// NewTrayIndicator creates a tray indicator. The monitor, if any, is
// started with the tray and stopped on exit; its callbacks are wired by
// Application.
func NewTrayIndicator(ctrl Controller, monitor *vpn.Monitor, notifier ConnectionNotifier) *TrayIndicator {
	if notifier == nil {
		notifier = NewNotifier(false)
	}
	return &TrayIndicator{
		ctrl:     ctrl,
		monitor:  monitor,
		notifier: notifier,
		status:   common.StatusUnknown,
	}
}

// SetDisconnectOnExit hangs up the connection when the tray quits.
func (t *TrayIndicator) SetDisconnectOnExit(v bool) {
	t.disconnectOnExit = v
}

// Run starts the system tray indicator and blocks until Quit is clicked
// or ctx is cancelled.
func (t *TrayIndicator) Run(ctx context.Context) {
	t.ctx, t.cancel = context.WithCancel(ctx)
	go func() {
		<-t.ctx.Done()
		systray.Quit()
	}()
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the systray is ready.
func (t *TrayIndicator) onReady() {
	name := t.ctrl.Profile().Name()
	menu := newSystrayMenu(name)

	t.mu.Lock()
	t.menu = menu
	t.mu.Unlock()

	go func() {
		for range menu.connectItem.ClickedCh {
			go t.connect()
		}
	}()
	go func() {
		for range menu.disconnectItem.ClickedCh {
			go t.disconnect()
		}
	}()
	go func() {
		for range menu.updateItem.ClickedCh {
			t.updateEntry()
		}
	}()
	go func() {
		<-menu.quitItem.ClickedCh
		t.cancel()
	}()

	if t.monitor != nil {
		t.monitor.Start(t.ctx)
	} else if active, err := t.ctrl.IsActive(t.ctx); err == nil {
		t.SetStatus(common.StatusFromActive(active))
	}
}

// onExit is called when the systray is about to exit.
func (t *TrayIndicator) onExit() {
	t.stopUptimeCounter()
	if t.monitor != nil {
		t.monitor.Stop()
	}

	if t.disconnectOnExit {
		common.LogInfo("Tray: disconnecting %s on exit", t.ctrl.Profile().Name())
		// The tray context is already cancelled here.
		res := t.ctrl.TryDisconnect(context.Background())
		if !res.Succeeded {
			common.LogWarn("Tray: disconnect on exit: %v", res.Err())
		}
	}
	common.LogInfo("Tray indicator cleanup completed")
}

func (t *TrayIndicator) connect() {
	name := t.ctrl.Profile().Name()
	t.SetStatus(common.StatusConnecting)
	t.notifier.NotifyConnecting(name)

	res := t.ctrl.TryConnect(t.ctx)
	if res.Succeeded {
		t.SetStatus(common.StatusConnected)
		t.notifier.NotifyConnected(name)
		return
	}
	common.LogError("Tray: connect %s: %v", name, res.Err())
	t.SetStatus(common.StatusError)
	t.notifier.NotifyError(name, res.Err().Error())
}

func (t *TrayIndicator) disconnect() {
	name := t.ctrl.Profile().Name()
	t.SetStatus(common.StatusDisconnecting)

	res := t.ctrl.TryDisconnect(t.ctx)
	if res.Succeeded {
		t.SetStatus(common.StatusDisconnected)
		t.notifier.NotifyDisconnected(name)
		return
	}
	common.LogError("Tray: disconnect %s: %v", name, res.Err())
	t.SetStatus(common.StatusError)
	t.notifier.NotifyError(name, res.Err().Error())
}

func (t *TrayIndicator) updateEntry() {
	name := t.ctrl.Profile().Name()
	if err := t.ctrl.CreateOrUpdate(t.ctx); err != nil {
		common.LogError("Tray: updating entry %s: %v", name, err)
		t.notifier.NotifyError(name, err.Error())
	}
}

// SetStatus updates icon, tooltip and menu for status.
func (t *TrayIndicator) SetStatus(status common.ConnectionStatus) {
	t.mu.Lock()
	prev := t.status
	t.status = status
	menu := t.menu
	t.mu.Unlock()
	if prev == status {
		return
	}

	if menu != nil {
		menu.SetStatus(status, t.ctrl.Profile().Name())
	}
	switch status {
	case common.StatusConnected:
		t.startUptimeCounter()
	case common.StatusConnecting, common.StatusDisconnecting:
	default:
		t.stopUptimeCounter()
	}
}

// Status returns the last status shown by the tray.
func (t *TrayIndicator) Status() common.ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// startUptimeCounter starts the uptime display ticker.
func (t *TrayIndicator) startUptimeCounter() {
	t.stopUptimeCounter()

	t.mu.Lock()
	t.connectTime = time.Now()
	stop := make(chan struct{})
	t.uptimeStop = stop
	start := t.connectTime
	menu := t.menu
	t.mu.Unlock()

	if menu == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				menu.SetUptime(time.Since(start))
			case <-stop:
				return
			}
		}
	}()
}

// stopUptimeCounter stops the uptime display ticker.
func (t *TrayIndicator) stopUptimeCounter() {
	t.mu.Lock()
	stop := t.uptimeStop
	t.uptimeStop = nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
	}
}

// systrayMenu is the trayMenu backed by the platform tray.
type systrayMenu struct {
	statusItem     *systray.MenuItem
	uptimeItem     *systray.MenuItem
	connectItem    *systray.MenuItem
	disconnectItem *systray.MenuItem
	updateItem     *systray.MenuItem
	quitItem       *systray.MenuItem
}

func newSystrayMenu(name string) *systrayMenu {
	systray.SetIcon(TrayIcon(common.StatusUnknown))
	systray.SetTitle(common.AppName)
	systray.SetTooltip(tooltip(common.StatusUnknown, name))

	m := &systrayMenu{}
	m.statusItem = systray.AddMenuItem(statusTitle(common.StatusUnknown, name), "Current VPN status")
	m.statusItem.Disable()

	m.uptimeItem = systray.AddMenuItem("Uptime: 00:00:00", "Connection duration")
	m.uptimeItem.Disable()
	m.uptimeItem.Hide()

	systray.AddSeparator()

	m.connectItem = systray.AddMenuItem("Connect", "Connect to "+name)
	m.disconnectItem = systray.AddMenuItem("Disconnect", "Disconnect from "+name)
	m.disconnectItem.Hide()
	m.updateItem = systray.AddMenuItem("Update Entry", "Write the connection entry to the phone book")

	systray.AddSeparator()

	m.quitItem = systray.AddMenuItem("Quit", "Close "+common.AppName)
	return m
}

func (m *systrayMenu) SetStatus(status common.ConnectionStatus, name string) {
	systray.SetIcon(TrayIcon(status))
	systray.SetTooltip(tooltip(status, name))
	m.statusItem.SetTitle(statusTitle(status, name))

	switch status {
	case common.StatusConnected:
		m.connectItem.Hide()
		m.disconnectItem.Enable()
		m.disconnectItem.Show()
		m.uptimeItem.SetTitle("Uptime: " + formatUptime(0))
		m.uptimeItem.Show()
	case common.StatusConnecting, common.StatusDisconnecting:
		m.connectItem.Disable()
		m.disconnectItem.Disable()
	default:
		m.uptimeItem.Hide()
		m.connectItem.Enable()
		m.connectItem.Show()
		m.disconnectItem.Enable()
		m.disconnectItem.Hide()
	}
}

func (m *systrayMenu) SetUptime(d time.Duration) {
	m.uptimeItem.SetTitle("Uptime: " + formatUptime(d))
}

func statusTitle(status common.ConnectionStatus, name string) string {
	switch status {
	case common.StatusConnected:
		return "Connected: " + name
	case common.StatusConnecting:
		return "Connecting: " + name + "..."
	case common.StatusDisconnecting:
		return "Disconnecting: " + name + "..."
	case common.StatusError:
		return "Error: " + name
	case common.StatusDisconnected:
		return "Not Connected: " + name
	default:
		return name
	}
}

func tooltip(status common.ConnectionStatus, name string) string {
	return fmt.Sprintf("%s - %s (%s)", common.AppName, status, name)
}

func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
