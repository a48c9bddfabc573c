// Package phonebook abstracts the persistent store of VPN connection entries
// and the list of VPN-capable devices the host exposes.
//
// Three backends are provided: the RAS phonebook file used by Windows
// (rasphone.pbk), a portable SQLite database, and an in-memory book.
package phonebook

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by phonebook backends.
var (
	ErrEntryNotFound = errors.New("phonebook entry not found")
	ErrEntryExists   = errors.New("phonebook entry already exists")
	ErrInvalidEntry  = errors.New("invalid phonebook entry")
)

// Strategy is the ordered preference of tunnel protocols negotiated for an
// entry. Values match the VpnStrategy field of the RAS phonebook.
type Strategy int

const (
	StrategyDefault Strategy = iota
	StrategyPptpOnly
	StrategyPptpFirst
	StrategyL2tpOnly
	StrategyL2tpFirst
	StrategySstpOnly
	StrategySstpFirst
	StrategyIkeV2Only
	StrategyIkeV2First
)

// String returns the display name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyDefault:
		return "Default"
	case StrategyPptpOnly:
		return "PPTP-only"
	case StrategyPptpFirst:
		return "PPTP-first"
	case StrategyL2tpOnly:
		return "L2TP-only"
	case StrategyL2tpFirst:
		return "L2TP-first"
	case StrategySstpOnly:
		return "SSTP-only"
	case StrategySstpFirst:
		return "SSTP-first"
	case StrategyIkeV2Only:
		return "IKEv2-only"
	case StrategyIkeV2First:
		return "IKEv2-first"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Device is a VPN-capable adapter or driver binding exposed by the host.
type Device struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// DeviceTypeVPN is the device type RAS reports for VPN miniports.
const DeviceTypeVPN = "vpn"

// DefaultDevices are the WAN miniports present on a stock Windows install.
// The portable backends use them in place of a real device enumeration.
var DefaultDevices = []Device{
	{Name: "WAN Miniport (SSTP)", Type: DeviceTypeVPN},
	{Name: "WAN Miniport (IKEv2)", Type: DeviceTypeVPN},
	{Name: "WAN Miniport (L2TP)", Type: DeviceTypeVPN},
	{Name: "WAN Miniport (PPTP)", Type: DeviceTypeVPN},
}

// Entry is a persisted VPN connection definition keyed by Name.
type Entry struct {
	Name        string   `json:"name" yaml:"name"`
	PhoneNumber string   `json:"phone_number" yaml:"phone_number"`
	Strategy    Strategy `json:"strategy" yaml:"strategy"`
	Device      Device   `json:"device" yaml:"device"`
}

// Validate checks that the entry can be stored.
func (e Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if e.PhoneNumber == "" {
		return fmt.Errorf("%w: phone number is required", ErrInvalidEntry)
	}
	return nil
}

// PhoneBook is an opened phonebook. Implementations are safe for use by a
// single goroutine; callers open, operate and close.
type PhoneBook interface {
	// Contains reports whether an entry with the given name exists.
	Contains(ctx context.Context, name string) (bool, error)
	// Entry returns the named entry or ErrEntryNotFound.
	Entry(ctx context.Context, name string) (Entry, error)
	// Entries lists all entries ordered by name.
	Entries(ctx context.Context) ([]Entry, error)
	// Add stores a new entry; ErrEntryExists if the name is taken.
	Add(ctx context.Context, entry Entry) error
	// Update overwrites an existing entry; ErrEntryNotFound if absent.
	Update(ctx context.Context, entry Entry) error
	// Remove deletes the named entry; ErrEntryNotFound if absent.
	Remove(ctx context.Context, name string) error
	// Close releases the phonebook.
	Close() error
}

// Opener opens the system-wide phonebook.
type Opener interface {
	Open(ctx context.Context) (PhoneBook, error)
}

// DeviceLister enumerates VPN-capable devices.
type DeviceLister interface {
	Devices(ctx context.Context) ([]Device, error)
}

// StaticDevices is a DeviceLister over a fixed list.
type StaticDevices []Device

// Devices returns a copy of the list.
func (s StaticDevices) Devices(ctx context.Context) ([]Device, error) {
	out := make([]Device, len(s))
	copy(out, s)
	return out, nil
}
