package ui

import (
	"context"
	"errors"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/config"
	"github.com/yllada/vpn-connector/vpn"
)

// Application represents the tray application
type Application struct {
	ctrl     Controller
	monitor  *vpn.Monitor
	notifier ConnectionNotifier
	config   *config.Config
	version  string
	tray     *TrayIndicator
}

// NewApplication creates a new tray application for ctrl.
func NewApplication(ctrl Controller, cfg *config.Config, version string) *Application {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	a := &Application{
		ctrl:     ctrl,
		config:   cfg,
		version:  version,
		notifier: NewNotifier(cfg.Notifications.Enabled),
		monitor:  NewMonitor(ctrl, cfg.Monitor),
	}
	a.tray = NewTrayIndicator(ctrl, a.monitor, a.notifier)
	return a
}

// NewMonitor builds a vpn.Monitor from the monitor section of the config.
func NewMonitor(target vpn.Target, cfg config.MonitorConfig) *vpn.Monitor {
	return vpn.NewMonitor(target, vpn.MonitorConfig{
		CheckInterval:        cfg.CheckInterval,
		FailureThreshold:     cfg.FailureThreshold,
		AutoReconnect:        cfg.AutoReconnect,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
}

// Run shows the tray and blocks until it is closed or ctx is cancelled.
func (a *Application) Run(ctx context.Context) {
	a.setupMonitor()
	common.LogInfo("%s %s tray started for %s", common.AppName, a.version, a.ctrl.Profile().Name())
	a.tray.Run(ctx)
}

// GetVersion returns the application version
func (a *Application) GetVersion() string {
	return a.version
}

// GetTray returns the tray indicator
func (a *Application) GetTray() *TrayIndicator {
	return a.tray
}

// GetMonitor returns the connection monitor
func (a *Application) GetMonitor() *vpn.Monitor {
	return a.monitor
}

// SetDisconnectOnExit hangs up the connection when the tray quits.
func (a *Application) SetDisconnectOnExit(v bool) {
	a.tray.SetDisconnectOnExit(v)
}

// setupMonitor routes monitor events into the tray and notifications.
func (a *Application) setupMonitor() {
	name := a.ctrl.Profile().Name()

	a.monitor.SetOnHealthChange(func(oldState, newState vpn.HealthState, h vpn.ConnectionHealth) {
		a.tray.SetStatus(common.StatusFromActive(h.Active))

		switch newState {
		case vpn.HealthUnhealthy:
			if oldState == vpn.HealthHealthy || oldState == vpn.HealthDegraded {
				if a.config.Monitor.AutoReconnect {
					a.notifier.NotifyError(name, "Connection lost - attempting to reconnect...")
				} else {
					a.notifier.NotifyDisconnected(name)
				}
			}
		case vpn.HealthHealthy:
			if oldState == vpn.HealthUnhealthy {
				a.notifier.NotifyConnected(name)
			}
		}
	})

	a.monitor.SetOnReconnecting(func(attempt int) {
		common.LogInfo("Reconnecting to %s (attempt %d)...", name, attempt)
		a.tray.SetStatus(common.StatusConnecting)
	})

	a.monitor.SetOnReconnected(func(res vpn.Result) {
		a.tray.SetStatus(common.StatusConnected)
		a.notifier.NotifyConnected(name + " (reconnected)")
	})

	a.monitor.SetOnReconnectFailed(func(err error) {
		a.tray.SetStatus(common.StatusError)
		if errors.Is(err, vpn.ErrReconnectExhausted) {
			a.notifier.NotifyError(name, "Auto-reconnect failed after multiple attempts")
			return
		}
		a.notifier.NotifyError(name, err.Error())
	})
}
