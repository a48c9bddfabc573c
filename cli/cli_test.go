package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/keyring"
	"github.com/yllada/vpn-connector/vpn"
)

func TestMain(m *testing.M) {
	gokeyring.MockInit()
	os.Exit(m.Run())
}

type recordingDialer struct {
	mu      sync.Mutex
	dials   [][]string
	hangups []string
	onDial  func()
	onHang  func()
}

func (d *recordingDialer) Dial(ctx context.Context, name, username, password string) error {
	d.mu.Lock()
	d.dials = append(d.dials, []string{name, username, password})
	d.mu.Unlock()
	if d.onDial != nil {
		d.onDial()
	}
	return nil
}

func (d *recordingDialer) HangUp(ctx context.Context, name string) error {
	d.mu.Lock()
	d.hangups = append(d.hangups, name)
	d.mu.Unlock()
	if d.onHang != nil {
		d.onHang()
	}
	return nil
}

type link struct {
	mu     sync.Mutex
	active bool
}

func (l *link) set(v bool) {
	l.mu.Lock()
	l.active = v
	l.mu.Unlock()
}

func (l *link) detector() vpn.Detector {
	return vpn.DetectorFunc(func(ctx context.Context) (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.active, nil
	})
}

type harness struct {
	dir    string
	dialer *recordingDialer
	link   *link
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		dir:    t.TempDir(),
		dialer: &recordingDialer{},
		link:   &link{},
	}
	h.dialer.onDial = func() { h.link.set(true) }
	h.dialer.onHang = func() { h.link.set(false) }
	return h
}

// run executes the CLI with the harness fakes and a memory phonebook
// unless args pick another one.
func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()
	h.errOut.Reset()

	app := App("test",
		vpn.WithDialer(h.dialer),
		vpn.WithDetector(h.link.detector()),
		vpn.WithClock(testingclock.NewFakeClock(time.Now())),
	)
	app.Writer = &h.out
	app.ErrWriter = &h.errOut

	full := []string{"vpn-connector",
		"--config", filepath.Join(h.dir, "config.yaml"),
		"--phonebook", "memory",
		"--server", "vpn.example.com",
		"--name", "Corp",
		"--user", "alice",
	}
	return app.Run(append(full, args...))
}

func TestApp(t *testing.T) {
	app := App("test")
	require.NotNil(t, app)
	assert.Equal(t, "vpn-connector", app.Name)

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, name := range []string{"create", "connect", "disconnect", "delete", "status", "entries", "devices", "watch", "tray", "config"} {
		assert.True(t, names[name], "missing command %s", name)
	}

	flags := make(map[string]bool)
	for _, f := range app.Flags {
		flags[f.Names()[0]] = true
	}
	for _, name := range []string{"config", "verbose", "server", "name", "user", "protocol", "helper", "phonebook", "phonebook-path", "timeout", "dry-run"} {
		assert.True(t, flags[name], "missing flag %s", name)
	}
}

func TestCreate(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "--protocol", "ikev2", "create"))
	assert.Contains(t, h.out.String(), "Entry Corp written (IKEv2")
}

func TestCreate_MissingServer(t *testing.T) {
	h := newHarness(t)
	app := App("test")
	app.Writer, app.ErrWriter = io.Discard, io.Discard

	err := app.Run([]string{"vpn-connector",
		"--config", filepath.Join(h.dir, "config.yaml"),
		"--phonebook", "memory",
		"create"})
	assert.ErrorIs(t, err, common.ErrInvalidProfile)
}

func TestEntries_PersistAcrossRunsWithSQLite(t *testing.T) {
	h := newHarness(t)
	book := filepath.Join(h.dir, "book.db")

	require.NoError(t, h.run(t, "--phonebook", "sqlite", "--phonebook-path", book, "create"))
	require.NoError(t, h.run(t, "--phonebook", "sqlite", "--phonebook-path", book, "entries"))

	out := h.out.String()
	assert.Contains(t, out, "Corp")
	assert.Contains(t, out, "vpn.example.com")
	assert.Contains(t, out, "WAN Miniport (SSTP)")
}

func TestEntries_Empty(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "entries"))
	assert.Contains(t, h.out.String(), "No entries")
}

func TestDevices(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "devices"))
	assert.Contains(t, h.out.String(), "WAN Miniport (IKEv2)")
}

func TestDevices_VPNOnly(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "devices", "--vpn"))
	assert.Contains(t, h.out.String(), "WAN Miniport (SSTP)")
}

func TestConnect(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "connect", "--password", "s3cret"))
	assert.Contains(t, h.out.String(), "Connected to Corp")
	require.Len(t, h.dialer.dials, 1)
	assert.Equal(t, []string{"Corp", "alice", "s3cret"}, h.dialer.dials[0])
	assert.NotContains(t, h.out.String()+h.errOut.String(), "s3cret")
}

func TestConnect_TimeoutFails(t *testing.T) {
	h := newHarness(t)
	h.dialer.onDial = nil

	err := h.run(t, "--timeout", "3", "connect", "--password", "s3cret")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTimeout)
	assert.Equal(t, 1, ExitCode(err))
}

func TestConnect_SavesAndReusesPassword(t *testing.T) {
	h := newHarness(t)
	t.Cleanup(func() { _ = keyring.Default().Delete("Corp") })

	require.NoError(t, h.run(t, "connect", "--password", "s3cret", "--save-password"))
	stored, err := keyring.Default().Get("Corp")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", stored)

	h.link.set(false)
	require.NoError(t, h.run(t, "connect"))
	require.Len(t, h.dialer.dials, 2)
	assert.Equal(t, "s3cret", h.dialer.dials[1][2])
}

func TestConnect_NoPasswordWithoutTerminal(t *testing.T) {
	h := newHarness(t)
	prev := promptPassword
	promptPassword = func(io.Writer, string) (string, error) { return "", errNoTerminal }
	t.Cleanup(func() { promptPassword = prev })

	err := h.run(t, "connect")
	assert.ErrorIs(t, err, common.ErrCredentialsNotFound)
	assert.Empty(t, h.dialer.dials)
}

func TestConnect_PromptedPassword(t *testing.T) {
	h := newHarness(t)
	prev := promptPassword
	var prompt string
	promptPassword = func(_ io.Writer, p string) (string, error) {
		prompt = p
		return "typed", nil
	}
	t.Cleanup(func() { promptPassword = prev })

	require.NoError(t, h.run(t, "connect"))
	assert.Equal(t, "Password for alice@Corp: ", prompt)
	assert.Equal(t, "typed", h.dialer.dials[0][2])
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)
	h.link.set(true)

	require.NoError(t, h.run(t, "disconnect"))
	assert.Contains(t, h.out.String(), "Disconnected from Corp")
	assert.Equal(t, []string{"Corp"}, h.dialer.hangups)
}

func TestDelete_RemovesStoredPassword(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, keyring.Default().Store("Corp", "s3cret"))

	require.NoError(t, h.run(t, "delete"))
	assert.Contains(t, h.out.String(), "Entry Corp deleted")
	assert.False(t, keyring.Default().Exists("Corp"))
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.link.set(true)

	require.NoError(t, h.run(t, "status"))
	out := h.out.String()
	assert.Contains(t, out, "Corp")
	assert.Contains(t, out, "vpn.example.com")
	assert.Contains(t, out, "Connected")
	assert.NotContains(t, out, "yes (")
}

func TestStatus_ShowsStoredPassword(t *testing.T) {
	h := newHarness(t)
	vault := keyring.Default()
	require.NoError(t, vault.Store("Corp", "s3cret"))
	t.Cleanup(func() { _ = vault.Delete("Corp") })

	require.NoError(t, h.run(t, "status"))
	assert.Contains(t, h.out.String(), "yes (")
	assert.NotContains(t, h.out.String(), "s3cret")
}

func TestConfigInitAndShow(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "config.yaml")

	require.NoError(t, h.run(t, "config", "init"))
	assert.FileExists(t, path)

	err := h.run(t, "config", "init")
	assert.True(t, errors.Is(err, common.ErrConfigSave), "second init without --force: %v", err)

	require.NoError(t, h.run(t, "config", "show"))
	assert.Contains(t, h.out.String(), "server_address: vpn.example.com")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{61 * time.Second, "1m 1s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
