package ui

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyCall struct {
	method string
	args   []interface{}
}

type fakeBus struct {
	calls []notifyCall
	id    uint32
	err   error
}

func (f *fakeBus) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, notifyCall{method: method, args: args})
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	f.id++
	return &dbus.Call{Body: []interface{}{f.id}}
}

func newTestNotifier(bus *fakeBus) *Notifier {
	n := NewNotifier(true)
	n.obj = bus
	n.dialed = true
	return n
}

func TestNotifier_Show(t *testing.T) {
	bus := &fakeBus{}
	n := newTestNotifier(bus)

	require.NoError(t, n.Show(Notification{Title: "T", Message: "M", Type: NotificationError}))
	require.Len(t, bus.calls, 1)

	call := bus.calls[0]
	assert.Equal(t, "org.freedesktop.Notifications.Notify", call.method)
	require.Len(t, call.args, 8)
	assert.Equal(t, "VPN Connector", call.args[0])
	assert.Equal(t, uint32(0), call.args[1], "first notification replaces nothing")
	assert.Equal(t, "dialog-error", call.args[2])
	assert.Equal(t, "T", call.args[3])
	assert.Equal(t, "M", call.args[4])

	hints, ok := call.args[6].(map[string]dbus.Variant)
	require.True(t, ok)
	assert.Equal(t, byte(2), hints["urgency"].Value())
	assert.Equal(t, int32(-1), call.args[7])
}

func TestNotifier_ReplacesPrevious(t *testing.T) {
	bus := &fakeBus{}
	n := newTestNotifier(bus)

	n.NotifyConnecting("Corp")
	n.NotifyConnected("Corp")

	require.Len(t, bus.calls, 2)
	assert.Equal(t, uint32(1), bus.calls[1].args[1])
	assert.Equal(t, "Connected to Corp", bus.calls[1].args[4])
}

func TestNotifier_CallError(t *testing.T) {
	bus := &fakeBus{err: errors.New("no daemon")}
	n := newTestNotifier(bus)

	assert.Error(t, n.Notify("T", "M"))
}

func TestNotifier_Disabled(t *testing.T) {
	bus := &fakeBus{}
	n := NewNotifier(false)
	n.obj = bus
	n.dialed = true

	assert.NoError(t, n.NotifyWithIcon("T", "M", "network-vpn"))
	assert.Empty(t, bus.calls)
}

func TestNotifier_NoBusLogs(t *testing.T) {
	n := NewNotifier(true)
	n.dialed = true

	assert.NoError(t, n.Notify("T", "M"))
}
