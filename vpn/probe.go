// Package vpn provides VPN connection management functionality.
// This file contains the connectivity probes used to decide whether the
// connection is up.
package vpn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/yllada/vpn-connector/common"
)

// Probe captures the output of a network-configuration command.
type Probe interface {
	Output(ctx context.Context) (string, error)
}

// CommandProbe runs Args hidden and returns the combined output.
type CommandProbe struct {
	Args    []string
	Timeout time.Duration
}

// NewCommandProbe creates a probe for args, or for the platform's
// ipconfig equivalent when args is empty.
func NewCommandProbe(args []string, timeout time.Duration) CommandProbe {
	if len(args) == 0 {
		args = defaultProbeArgs()
	}
	if timeout <= 0 {
		timeout = common.ProbeTimeout
	}
	return CommandProbe{Args: args, Timeout: timeout}
}

// Output runs the command, bounded by Timeout.
func (p CommandProbe) Output(ctx context.Context) (string, error) {
	if len(p.Args) == 0 {
		return "", fmt.Errorf("%w: no probe command configured", common.ErrProbe)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = common.ProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Args[0], p.Args[1:]...)
	hideWindow(cmd)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %s timed out after %v", common.ErrProbe, p.Args[0], timeout)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", common.ErrProbe, p.Args[0], err)
	}
	return string(out), nil
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) (string, error)

func (f ProbeFunc) Output(ctx context.Context) (string, error) { return f(ctx) }

// Detector decides whether the connection is currently active.
type Detector interface {
	Active(ctx context.Context) (bool, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context) (bool, error)

func (f DetectorFunc) Active(ctx context.Context) (bool, error) { return f(ctx) }

// SubstringDetector reports active when the probe output contains Marker
// anywhere. With the default "0.0.0.0" marker this also matches output
// such as "10.0.0.0", and it cannot tell which adapter carried the text.
type SubstringDetector struct {
	Probe  Probe
	Marker string
}

func (d SubstringDetector) Active(ctx context.Context) (bool, error) {
	out, err := d.Probe.Output(ctx)
	if err != nil {
		return false, err
	}
	marker := d.Marker
	if marker == "" {
		marker = common.ActiveMarker
	}
	return strings.Contains(out, marker), nil
}

// Adapter is one network adapter as seen by a probe.
type Adapter struct {
	// Header is the raw section title, e.g. "PPP adapter Corp".
	Header string
	// Name is the adapter name with the kind prefix removed.
	Name         string
	IPv4         []string
	Disconnected bool
}

// Matches reports whether the adapter belongs to the named connection.
func (a Adapter) Matches(name string) bool {
	if name == "" {
		return false
	}
	if strings.EqualFold(a.Name, name) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(a.Header), " "+strings.ToLower(name))
}

// Up reports whether the adapter is connected and carries an IPv4 address.
func (a Adapter) Up() bool {
	return !a.Disconnected && len(a.IPv4) > 0
}

// ParseIPConfig splits ipconfig output into adapter sections. Section
// titles are the unindented lines ending in ':'; within a section the
// IPv4 address and media state lines are read, everything else is skipped.
func ParseIPConfig(output string) []Adapter {
	var (
		adapters []Adapter
		current  *Adapter
	)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			if !strings.HasSuffix(line, ":") {
				current = nil
				continue
			}
			header := strings.TrimSpace(strings.TrimSuffix(line, ":"))
			adapters = append(adapters, Adapter{Header: header, Name: adapterName(header)})
			current = &adapters[len(adapters)-1]
			continue
		}

		if current == nil {
			continue
		}

		key, value, ok := splitIPConfigLine(line)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(key, "IPv4") || key == "IP Address":
			value = strings.TrimSuffix(value, "(Preferred)")
			if ip := net.ParseIP(strings.TrimSpace(value)); ip != nil && ip.To4() != nil {
				current.IPv4 = append(current.IPv4, ip.String())
			}
		case strings.EqualFold(key, "Media State"):
			current.Disconnected = strings.Contains(strings.ToLower(value), "disconnected")
		}
	}

	return adapters
}

// adapterName strips the "<kind> adapter " prefix from a section title.
func adapterName(header string) string {
	if i := strings.Index(header, " adapter "); i >= 0 {
		return strings.TrimSpace(header[i+len(" adapter "):])
	}
	return header
}

// splitIPConfigLine splits "   Key . . . . : value" lines.
func splitIPConfigLine(line string) (key, value string, ok bool) {
	i := strings.Index(line, " : ")
	if i < 0 {
		if strings.HasSuffix(line, " :") {
			i = len(line) - 2
		} else {
			return "", "", false
		}
	}
	key = strings.TrimRight(strings.TrimSpace(line[:i]), " .")
	if i+3 <= len(line) {
		value = strings.TrimSpace(line[i+3:])
	}
	return key, value, true
}

// AdapterDetector reports active when the ipconfig section for Adapter
// is connected and has an IPv4 address.
type AdapterDetector struct {
	Probe   Probe
	Adapter string
}

func (d AdapterDetector) Active(ctx context.Context) (bool, error) {
	out, err := d.Probe.Output(ctx)
	if err != nil {
		return false, err
	}
	return anyAdapterUp(ParseIPConfig(out), d.Adapter), nil
}

// InterfaceLister returns the host's adapters.
type InterfaceLister func() ([]Adapter, error)

// InterfaceDetector reports active when the OS interface named Name is up
// with an IPv4 address.
type InterfaceDetector struct {
	Name   string
	Lister InterfaceLister
}

func (d InterfaceDetector) Active(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	lister := d.Lister
	if lister == nil {
		lister = SystemInterfaces
	}
	adapters, err := lister()
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrProbe, err)
	}
	return anyAdapterUp(adapters, d.Name), nil
}

// SystemInterfaces reads the interface table with net.Interfaces.
func SystemInterfaces() ([]Adapter, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	adapters := make([]Adapter, 0, len(ifaces))
	for _, ifc := range ifaces {
		a := Adapter{
			Header:       ifc.Name,
			Name:         ifc.Name,
			Disconnected: ifc.Flags&net.FlagUp == 0,
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			common.LogDebug("Skipping addresses of %s: %v", ifc.Name, err)
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				a.IPv4 = append(a.IPv4, ipnet.IP.String())
			}
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func anyAdapterUp(adapters []Adapter, name string) bool {
	for _, a := range adapters {
		if a.Matches(name) && a.Up() {
			return true
		}
	}
	return false
}

// DefaultProbeMode is adapter on Windows, interface elsewhere.
func DefaultProbeMode() string {
	if runtime.GOOS == "windows" {
		return common.ProbeModeAdapter
	}
	return common.ProbeModeInterface
}

func defaultDetector(adapter string) Detector {
	if DefaultProbeMode() == common.ProbeModeAdapter {
		return AdapterDetector{Probe: NewCommandProbe(nil, 0), Adapter: adapter}
	}
	return InterfaceDetector{Name: adapter}
}

// DetectorOptions configures NewDetector.
type DetectorOptions struct {
	Mode    string
	Adapter string
	Command []string
	Timeout time.Duration
	Marker  string
}

// NewDetector builds the detector selected by opts.Mode.
func NewDetector(opts DetectorOptions) (Detector, error) {
	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	if mode == "" {
		mode = DefaultProbeMode()
	}

	switch mode {
	case common.ProbeModeAdapter:
		return AdapterDetector{Probe: NewCommandProbe(opts.Command, opts.Timeout), Adapter: opts.Adapter}, nil
	case common.ProbeModeInterface:
		return InterfaceDetector{Name: opts.Adapter}, nil
	case common.ProbeModeSubstring:
		marker := opts.Marker
		if marker == "" {
			marker = common.ActiveMarker
		}
		return SubstringDetector{Probe: NewCommandProbe(opts.Command, opts.Timeout), Marker: marker}, nil
	default:
		return nil, fmt.Errorf("unknown probe mode %q", opts.Mode)
	}
}
