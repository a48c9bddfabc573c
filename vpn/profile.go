// Package vpn provides VPN connection management functionality.
// This file contains the Profile type, the immutable identity of the
// connection the Connector manages.
package vpn

import (
	"fmt"
	"strings"

	"github.com/yllada/vpn-connector/common"
)

// Protocol is the tunnel protocol a connection prefers.
type Protocol int

const (
	// ProtocolSSTP selects SSTP. It is the zero value.
	ProtocolSSTP Protocol = iota
	// ProtocolIKEv2 selects IKEv2.
	ProtocolIKEv2
)

// String returns the protocol name as it appears in device names.
func (p Protocol) String() string {
	switch p {
	case ProtocolSSTP:
		return "SSTP"
	case ProtocolIKEv2:
		return "IKEv2"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol parses a protocol name, ignoring case.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sstp":
		return ProtocolSSTP, nil
	case "ikev2":
		return ProtocolIKEv2, nil
	default:
		return 0, fmt.Errorf("%w: unknown protocol %q", common.ErrInvalidProfile, s)
	}
}

// Profile identifies one VPN connection: where it dials, the phonebook
// name it is stored under, its credentials and protocol. It is a value;
// nothing in this package mutates it after NewProfile.
type Profile struct {
	serverAddress string
	name          string
	username      string
	password      string
	protocol      Protocol
}

// NewProfile validates and builds a Profile. An empty name defaults to
// the server address.
func NewProfile(serverAddress, name, username, password string, protocol Protocol) (Profile, error) {
	serverAddress = strings.TrimSpace(serverAddress)
	name = strings.TrimSpace(name)

	if serverAddress == "" {
		return Profile{}, fmt.Errorf("%w: server address is required", common.ErrInvalidProfile)
	}
	if name == "" {
		name = serverAddress
	}
	if strings.ContainsAny(name, "[]\r\n") {
		return Profile{}, fmt.Errorf("%w: connection name %q contains reserved characters", common.ErrInvalidProfile, name)
	}
	if protocol != ProtocolSSTP && protocol != ProtocolIKEv2 {
		return Profile{}, fmt.Errorf("%w: unsupported protocol %v", common.ErrInvalidProfile, protocol)
	}

	return Profile{
		serverAddress: serverAddress,
		name:          name,
		username:      username,
		password:      password,
		protocol:      protocol,
	}, nil
}

// ServerAddress is the host the entry dials.
func (p Profile) ServerAddress() string { return p.serverAddress }

// Name is the phonebook key of the connection.
func (p Profile) Name() string { return p.name }

// Username is the dial user.
func (p Profile) Username() string { return p.username }

// Password is the dial secret.
func (p Profile) Password() string { return p.password }

// Protocol is the preferred tunnel protocol.
func (p Profile) Protocol() Protocol { return p.protocol }

// WithPassword returns a copy of p carrying a different password.
func (p Profile) WithPassword(password string) Profile {
	p.password = password
	return p
}

// String describes the profile without its secret.
func (p Profile) String() string {
	return fmt.Sprintf("%s (%s via %s, user %q)", p.name, p.serverAddress, p.protocol, p.username)
}
