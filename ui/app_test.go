package ui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/config"
)

func newTestApplication(t *testing.T, ctrl *fakeController, mutate func(*config.MonitorConfig)) (*Application, *fakeMenu, *fakeNotifier) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Monitor.FailureThreshold = 1
	cfg.Monitor.ReconnectDelay = 0
	if mutate != nil {
		mutate(&cfg.Monitor)
	}

	app := NewApplication(ctrl, cfg, "test")
	menu := &fakeMenu{}
	notes := &fakeNotifier{}
	app.notifier = notes
	app.tray.notifier = notes
	app.tray.ctx = context.Background()
	app.tray.menu = menu
	t.Cleanup(app.tray.stopUptimeCounter)

	app.setupMonitor()
	return app, menu, notes
}

func TestApplication_LinkDropWithoutReconnect(t *testing.T) {
	ctx := context.Background()
	ctrl := newFakeController(t)
	app, _, notes := newTestApplication(t, ctrl, nil)

	ctrl.active = true
	app.GetMonitor().Check(ctx)
	assert.Equal(t, common.StatusConnected, app.GetTray().Status())

	ctrl.active = false
	app.GetMonitor().Check(ctx)

	assert.Equal(t, common.StatusDisconnected, app.GetTray().Status())
	assert.Equal(t, []string{"disconnected Corp"}, notes.Notes())
	assert.Equal(t, 0, ctrl.connects)
}

func TestApplication_ReconnectSucceeds(t *testing.T) {
	ctx := context.Background()
	ctrl := newFakeController(t)
	app, menu, notes := newTestApplication(t, ctrl, func(m *config.MonitorConfig) {
		m.AutoReconnect = true
		m.MaxReconnectAttempts = 3
	})

	ctrl.active = true
	app.GetMonitor().Check(ctx)
	ctrl.active = false
	app.GetMonitor().Check(ctx)

	assert.Equal(t, 1, ctrl.connects)
	assert.Equal(t, common.StatusConnected, app.GetTray().Status())
	assert.Equal(t, []string{
		"error Corp: Connection lost - attempting to reconnect...",
		"connected Corp (reconnected)",
	}, notes.Notes())
	assert.Contains(t, menu.Statuses(), common.StatusConnecting)
}

func TestApplication_ReconnectExhausted(t *testing.T) {
	ctx := context.Background()
	ctrl := newFakeController(t)
	app, _, notes := newTestApplication(t, ctrl, func(m *config.MonitorConfig) {
		m.AutoReconnect = true
		m.MaxReconnectAttempts = 1
	})

	ctrl.active = true
	app.GetMonitor().Check(ctx)
	ctrl.active = false
	ctrl.fail = common.ErrTimeout
	app.GetMonitor().Check(ctx)
	app.GetMonitor().Check(ctx)

	require.Equal(t, 1, ctrl.connects)
	assert.Equal(t, common.StatusError, app.GetTray().Status())

	got := notes.Notes()
	require.Len(t, got, 3)
	assert.Contains(t, got[1], common.ErrTimeout.Error())
	assert.Equal(t, "error Corp: Auto-reconnect failed after multiple attempts", got[2])
}
