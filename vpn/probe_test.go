package vpn

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yllada/vpn-connector/common"
)

const ipconfigConnected = `
Windows IP Configuration


PPP adapter Corp:

   Connection-specific DNS Suffix  . :
   IPv4 Address. . . . . . . . . . . : 10.10.0.5
   Subnet Mask . . . . . . . . . . . : 255.255.255.255
   Default Gateway . . . . . . . . . : 0.0.0.0

Ethernet adapter Ethernet:

   Connection-specific DNS Suffix  . : lan
   Link-local IPv6 Address . . . . . : fe80::1c2b:3d4e:5f60:7182%12
   IPv4 Address. . . . . . . . . . . : 192.168.1.20(Preferred)
   Subnet Mask . . . . . . . . . . . : 255.255.255.0
   Default Gateway . . . . . . . . . : 192.168.1.1

Wireless LAN adapter Wi-Fi:

   Media State . . . . . . . . . . . : Media disconnected
   Connection-specific DNS Suffix  . :
`

const ipconfigOtherVPN = `
Windows IP Configuration


PPP adapter Home:

   IPv4 Address. . . . . . . . . . . : 172.16.4.2
   Default Gateway . . . . . . . . . : 0.0.0.0

Ethernet adapter Ethernet:

   IPv4 Address. . . . . . . . . . . : 192.168.1.20
`

func staticProbe(out string) Probe {
	return ProbeFunc(func(context.Context) (string, error) { return out, nil })
}

func TestParseIPConfig(t *testing.T) {
	adapters := ParseIPConfig(strings.ReplaceAll(ipconfigConnected, "\n", "\r\n"))
	require.Len(t, adapters, 3)

	assert.Equal(t, "PPP adapter Corp", adapters[0].Header)
	assert.Equal(t, "Corp", adapters[0].Name)
	assert.Equal(t, []string{"10.10.0.5"}, adapters[0].IPv4)
	assert.False(t, adapters[0].Disconnected)
	assert.True(t, adapters[0].Up())

	assert.Equal(t, "Ethernet", adapters[1].Name)
	assert.Equal(t, []string{"192.168.1.20"}, adapters[1].IPv4)

	assert.Equal(t, "Wi-Fi", adapters[2].Name)
	assert.True(t, adapters[2].Disconnected)
	assert.False(t, adapters[2].Up())
}

func TestParseIPConfig_Empty(t *testing.T) {
	assert.Empty(t, ParseIPConfig(""))
	assert.Empty(t, ParseIPConfig("Windows IP Configuration\n\n"))
}

func TestAdapter_Matches(t *testing.T) {
	a := Adapter{Header: "PPP-Adapter Corp VPN", Name: "PPP-Adapter Corp VPN"}
	assert.True(t, a.Matches("Corp VPN"))
	assert.True(t, a.Matches("corp vpn"))
	assert.False(t, a.Matches("VPN2"))
	assert.False(t, a.Matches(""))
}

func TestAdapterDetector(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		output  string
		adapter string
		want    bool
	}{
		{"own adapter up", ipconfigConnected, "Corp", true},
		{"other vpn carries 0.0.0.0", ipconfigOtherVPN, "Corp", false},
		{"disconnected media", ipconfigConnected, "Wi-Fi", false},
		{"missing adapter", ipconfigConnected, "Branch", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := AdapterDetector{Probe: staticProbe(tt.output), Adapter: tt.adapter}
			got, err := d.Active(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// The legacy detector cannot tell the adapters apart.
	legacy := SubstringDetector{Probe: staticProbe(ipconfigOtherVPN)}
	got, err := legacy.Active(ctx)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestDetectors_PropagateProbeErrors(t *testing.T) {
	ctx := context.Background()
	failing := ProbeFunc(func(context.Context) (string, error) { return "", common.ErrProbe })

	_, err := SubstringDetector{Probe: failing}.Active(ctx)
	assert.ErrorIs(t, err, common.ErrProbe)

	_, err = AdapterDetector{Probe: failing, Adapter: "Corp"}.Active(ctx)
	assert.ErrorIs(t, err, common.ErrProbe)

	_, err = InterfaceDetector{Name: "ppp0", Lister: func() ([]Adapter, error) {
		return nil, errors.New("netlink unavailable")
	}}.Active(ctx)
	assert.ErrorIs(t, err, common.ErrProbe)
}

func TestInterfaceDetector(t *testing.T) {
	ctx := context.Background()
	lister := func() ([]Adapter, error) {
		return []Adapter{
			{Header: "lo", Name: "lo", IPv4: []string{"127.0.0.1"}},
			{Header: "Corp", Name: "Corp", IPv4: []string{"10.10.0.5"}},
			{Header: "Home", Name: "Home", Disconnected: true, IPv4: []string{"172.16.4.2"}},
			{Header: "Branch", Name: "Branch"},
		}, nil
	}

	for name, want := range map[string]bool{"Corp": true, "Home": false, "Branch": false, "Missing": false} {
		got, err := InterfaceDetector{Name: name, Lister: lister}.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestSystemInterfaces(t *testing.T) {
	adapters, err := SystemInterfaces()
	require.NoError(t, err)
	for _, a := range adapters {
		assert.NotEmpty(t, a.Name)
	}
}

func TestCommandProbe(t *testing.T) {
	ctx := context.Background()

	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	out, err := CommandProbe{Args: []string{"echo", "Default Gateway : 0.0.0.0"}, Timeout: 5 * time.Second}.Output(ctx)
	require.NoError(t, err)
	assert.Contains(t, out, "0.0.0.0")

	_, err = CommandProbe{Args: []string{"/nonexistent/ipconfig"}}.Output(ctx)
	assert.ErrorIs(t, err, common.ErrProbe)

	_, err = CommandProbe{}.Output(ctx)
	assert.ErrorIs(t, err, common.ErrProbe)
}

func TestCommandProbe_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	start := time.Now()
	_, err := CommandProbe{Args: []string{"sleep", "5"}, Timeout: 50 * time.Millisecond}.Output(context.Background())
	assert.ErrorIs(t, err, common.ErrProbe)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestNewDetector(t *testing.T) {
	d, err := NewDetector(DetectorOptions{Mode: "substring", Adapter: "Corp"})
	require.NoError(t, err)
	sd, ok := d.(SubstringDetector)
	require.True(t, ok)
	assert.Equal(t, common.ActiveMarker, sd.Marker)

	d, err = NewDetector(DetectorOptions{Mode: "ADAPTER", Adapter: "Corp", Command: []string{"ipconfig"}})
	require.NoError(t, err)
	ad, ok := d.(AdapterDetector)
	require.True(t, ok)
	assert.Equal(t, "Corp", ad.Adapter)
	assert.Equal(t, []string{"ipconfig"}, ad.Probe.(CommandProbe).Args)

	d, err = NewDetector(DetectorOptions{Mode: "interface", Adapter: "ppp0"})
	require.NoError(t, err)
	assert.Equal(t, InterfaceDetector{Name: "ppp0"}, d)

	d, err = NewDetector(DetectorOptions{Adapter: "Corp"})
	require.NoError(t, err)
	assert.NotNil(t, d)

	_, err = NewDetector(DetectorOptions{Mode: "route"})
	assert.Error(t, err)
}
