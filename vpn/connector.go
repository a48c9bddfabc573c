// Package vpn provides VPN connection management functionality.
// This file contains the Connector, which owns the lifecycle of a single
// phonebook entry: create, connect, disconnect, delete and status.
package vpn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/phonebook"
)

// Observer receives the outcome of connector operations.
type Observer interface {
	ObserveResult(r Result)
	ObserveActive(active bool)
}

// Connector manages one VPN connection. It never remembers connection
// state; every status answer comes from a fresh probe.
//
// CreateOrUpdate, TryConnect, TryDisconnect and TryDelete are serialised:
// a monitor reconnect and a user request never dial the entry at once.
type Connector struct {
	profile  Profile
	opener   phonebook.Opener
	devices  phonebook.DeviceLister
	dialer   Dialer
	detector Detector
	clock    clock.Clock
	interval time.Duration
	timeout  int
	observer Observer

	opMu sync.Mutex

	mu         sync.RWMutex
	helperPath string
}

// Option configures a Connector.
type Option func(*Connector)

// WithPhoneBook sets where entries are stored.
func WithPhoneBook(opener phonebook.Opener) Option {
	return func(c *Connector) { c.opener = opener }
}

// WithDevices sets where RAS devices are enumerated from.
func WithDevices(devices phonebook.DeviceLister) Option {
	return func(c *Connector) { c.devices = devices }
}

// WithDialer replaces the rasdial launcher.
func WithDialer(d Dialer) Option {
	return func(c *Connector) { c.dialer = d }
}

// WithDetector replaces the connectivity detector.
func WithDetector(d Detector) Option {
	return func(c *Connector) { c.detector = d }
}

// WithClock sets the clock used for polling.
func WithClock(clk clock.Clock) Option {
	return func(c *Connector) { c.clock = clk }
}

// WithPollInterval sets the delay between two connectivity checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTimeout sets how many checks TryConnect and TryDisconnect make.
func WithTimeout(checks int) Option {
	return func(c *Connector) {
		if checks > 0 {
			c.timeout = checks
		}
	}
}

// WithObserver registers an observer for results and probe samples.
func WithObserver(o Observer) Option {
	return func(c *Connector) { c.observer = o }
}

// WithHelperPath sets the initial dial helper path without validation.
func WithHelperPath(path string) Option {
	return func(c *Connector) { c.helperPath = path }
}

// NewConnector creates a Connector for profile. Without options it binds
// to the all-users RAS phonebook, the system device list, rasdial.exe and
// the platform's default detector.
func NewConnector(profile Profile, opts ...Option) *Connector {
	c := &Connector{
		profile:    profile,
		clock:      clock.RealClock{},
		interval:   common.PollInterval,
		timeout:    common.DefaultTimeoutSeconds,
		helperPath: DefaultHelperPath(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.opener == nil {
		c.opener = phonebook.PBKOpener{Path: phonebook.AllUsersPhoneBookPath()}
	}
	if c.devices == nil {
		c.devices = phonebook.SystemDevices()
	}
	if c.dialer == nil {
		c.dialer = &RasDial{Path: c.HelperPath}
	}
	if c.detector == nil {
		c.detector = defaultDetector(profile.Name())
	}

	return c
}

// Profile returns the connection identity.
func (c *Connector) Profile() Profile {
	return c.profile
}

// HelperPath returns the dial helper executable currently in use.
func (c *Connector) HelperPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.helperPath
}

// SetHelperPath switches the dial helper. The path must name an existing
// regular file; otherwise the previous path is kept.
func (c *Connector) SetHelperPath(path string) error {
	if !common.IsRegularFile(path) {
		return fmt.Errorf("%w: %s", common.ErrHelperNotFound, path)
	}

	c.mu.Lock()
	c.helperPath = path
	c.mu.Unlock()

	common.LogDebug("Dial helper set to %s", path)
	return nil
}

// RasVpnStrategy maps the profile protocol onto a phonebook strategy.
// Only SSTP is special-cased; every other value falls back to IKEv2-first.
func (c *Connector) RasVpnStrategy() phonebook.Strategy {
	if c.profile.Protocol() == ProtocolSSTP {
		return phonebook.StrategySstpFirst
	}
	return phonebook.StrategyIkeV2First
}

// RasDevice returns the first device whose name contains the protocol name.
func (c *Connector) RasDevice(ctx context.Context) (phonebook.Device, error) {
	devices, err := c.devices.Devices(ctx)
	if err != nil {
		return phonebook.Device{}, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	needle := c.profile.Protocol().String()
	for _, d := range devices {
		if strings.Contains(d.Name, needle) {
			return d, nil
		}
	}
	return phonebook.Device{}, fmt.Errorf("%w for protocol %s", common.ErrDeviceNotFound, needle)
}

// CreateOrUpdate writes the phonebook entry for the profile, adding it
// when missing and overwriting its dial settings otherwise.
func (c *Connector) CreateOrUpdate(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	book, err := c.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open phonebook: %w", err)
	}
	defer book.Close()

	device, err := c.RasDevice(ctx)
	if err != nil {
		return err
	}

	name := c.profile.Name()
	entry := phonebook.Entry{
		Name:        name,
		PhoneNumber: c.profile.ServerAddress(),
		Strategy:    c.RasVpnStrategy(),
		Device:      device,
	}

	exists, err := book.Contains(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up entry %s: %w", name, err)
	}

	if exists {
		if err := book.Update(ctx, entry); err != nil {
			return fmt.Errorf("failed to update entry %s: %w", name, err)
		}
		common.LogInfo("Updated phonebook entry %s (%s, %s)", name, entry.PhoneNumber, entry.Strategy)
		return nil
	}

	if err := book.Add(ctx, entry); err != nil {
		return fmt.Errorf("failed to add entry %s: %w", name, err)
	}
	common.LogInfo("Created phonebook entry %s (%s, %s)", name, entry.PhoneNumber, entry.Strategy)
	return nil
}

// TryConnect dials the entry and waits for it to become active.
func (c *Connector) TryConnect(ctx context.Context) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	p := c.profile
	return c.attempt(ctx, OpConnect, true, func() error {
		return c.dialer.Dial(ctx, p.Name(), p.Username(), p.Password())
	})
}

// TryDisconnect hangs the entry up and waits for it to become inactive.
func (c *Connector) TryDisconnect(ctx context.Context) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.disconnect(ctx)
}

func (c *Connector) disconnect(ctx context.Context) Result {
	return c.attempt(ctx, OpDisconnect, false, func() error {
		return c.dialer.HangUp(ctx, c.profile.Name())
	})
}

// attempt launches the helper and polls for the wanted state. A launch
// failure does not stop polling: the entry may have been dialled by
// someone else, so Succeeded only reflects what the probe observes.
func (c *Connector) attempt(ctx context.Context, op Op, want bool, launch func() error) Result {
	start := c.clock.Now()
	res := Result{Op: op, AttemptID: uuid.New()}

	common.LogInfo("Starting %s of %s (attempt %s)", op, c.profile.Name(), res.AttemptID)

	launchErr := launch()
	if launchErr != nil {
		if !errors.Is(launchErr, common.ErrHelperLaunch) {
			launchErr = fmt.Errorf("%w: %w", common.ErrHelperLaunch, launchErr)
		}
		common.LogWarn("Dial helper failed for %s of %s: %v", op, c.profile.Name(), launchErr)
	}

	reached, waitErr := c.waitFor(ctx, want, c.timeout)

	res.Succeeded = reached
	res.Cause = resultCause(launchErr, reached, waitErr)
	res.Elapsed = c.clock.Since(start)

	if res.Succeeded {
		common.LogInfo("%s of %s succeeded in %v", op, c.profile.Name(), res.Elapsed)
	} else {
		common.LogError("%s of %s failed: %v", op, c.profile.Name(), res.Cause)
	}

	if c.observer != nil {
		c.observer.ObserveResult(res)
	}
	return res
}

// TryDelete disconnects and removes the entry. It does nothing when the
// entry is absent.
func (c *Connector) TryDelete(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	book, err := c.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open phonebook: %w", err)
	}
	defer book.Close()

	name := c.profile.Name()
	exists, err := book.Contains(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up entry %s: %w", name, err)
	}
	if !exists {
		common.LogDebug("Entry %s not in phonebook, nothing to delete", name)
		return nil
	}

	if res := c.disconnect(ctx); !res.Succeeded {
		common.LogWarn("Removing %s although it did not go inactive: %v", name, res.Cause)
	}

	if err := book.Remove(ctx, name); err != nil {
		return fmt.Errorf("failed to remove entry %s: %w", name, err)
	}
	common.LogInfo("Deleted phonebook entry %s", name)
	return nil
}

// IsActive samples connectivity once.
func (c *Connector) IsActive(ctx context.Context) (bool, error) {
	active, err := c.detector.Active(ctx)
	if err != nil {
		return false, err
	}
	if c.observer != nil {
		c.observer.ObserveActive(active)
	}
	return active, nil
}
