package vpn

import (
	"errors"
	"strings"
	"testing"

	"github.com/yllada/vpn-connector/common"
)

func TestProtocol_String(t *testing.T) {
	tests := []struct {
		protocol Protocol
		expected string
	}{
		{ProtocolSSTP, "SSTP"},
		{ProtocolIKEv2, "IKEv2"},
		{Protocol(9), "Protocol(9)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.protocol.String(); got != tt.expected {
				t.Errorf("Protocol.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		input   string
		want    Protocol
		wantErr bool
	}{
		{"sstp", ProtocolSSTP, false},
		{"SSTP", ProtocolSSTP, false},
		{"", ProtocolSSTP, false},
		{"IKEv2", ProtocolIKEv2, false},
		{" ikev2 ", ProtocolIKEv2, false},
		{"l2tp", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProtocol(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProtocol(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, common.ErrInvalidProfile) {
				t.Errorf("ParseProtocol(%q) error = %v, want ErrInvalidProfile", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewProfile(t *testing.T) {
	p, err := NewProfile(" vpn.example.com ", "", "alice", "pw", ProtocolSSTP)
	if err != nil {
		t.Fatalf("NewProfile() error = %v", err)
	}
	if p.Name() != "vpn.example.com" {
		t.Errorf("Name() = %v, want server address", p.Name())
	}
	if p.ServerAddress() != "vpn.example.com" {
		t.Errorf("ServerAddress() = %v, want vpn.example.com", p.ServerAddress())
	}

	if _, err := NewProfile("", "Corp", "alice", "pw", ProtocolSSTP); !errors.Is(err, common.ErrInvalidProfile) {
		t.Errorf("NewProfile() without server error = %v, want ErrInvalidProfile", err)
	}
	if _, err := NewProfile("vpn.example.com", "Corp]", "alice", "pw", ProtocolSSTP); !errors.Is(err, common.ErrInvalidProfile) {
		t.Errorf("NewProfile() with bracket error = %v, want ErrInvalidProfile", err)
	}
	if _, err := NewProfile("vpn.example.com", "Corp", "alice", "pw", Protocol(4)); !errors.Is(err, common.ErrInvalidProfile) {
		t.Errorf("NewProfile() with bad protocol error = %v, want ErrInvalidProfile", err)
	}
}

func TestProfile_StringHidesPassword(t *testing.T) {
	p, err := NewProfile("vpn.example.com", "Corp", "alice", "s3cret", ProtocolIKEv2)
	if err != nil {
		t.Fatalf("NewProfile() error = %v", err)
	}
	s := p.String()
	if strings.Contains(s, "s3cret") {
		t.Errorf("String() = %q leaks the password", s)
	}
	if !strings.Contains(s, "Corp") || !strings.Contains(s, "IKEv2") {
		t.Errorf("String() = %q, want name and protocol", s)
	}

	q := p.WithPassword("other")
	if q.Password() != "other" || p.Password() != "s3cret" {
		t.Errorf("WithPassword() changed the original profile")
	}
}
