// Package vpn provides VPN connection management functionality.
// This file contains the Dialer that drives the system dial helper.
package vpn

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/yllada/vpn-connector/common"
)

// Dialer starts and stops the tunnel for a named phonebook entry. Both
// calls only launch the work; callers poll a Detector for the outcome.
type Dialer interface {
	Dial(ctx context.Context, name, username, password string) error
	HangUp(ctx context.Context, name string) error
}

// RasDial launches rasdial.exe. The process is started hidden and never
// awaited for success: a reaper goroutine collects it and logs the exit
// status at debug level.
type RasDial struct {
	// Path returns the executable to launch. It is consulted on every call
	// so that a Connector can swap the helper at runtime.
	Path func() string
}

// NewRasDial creates a RasDial bound to a fixed executable path.
func NewRasDial(path string) *RasDial {
	return &RasDial{Path: func() string { return path }}
}

// Dial runs `<helper> <name> <username> <password>`.
func (r *RasDial) Dial(ctx context.Context, name, username, password string) error {
	return r.launch(dialArgs(name, username, password), name+" "+username+" "+common.MaskSecret(password))
}

// HangUp runs `<helper> <name> /d`.
func (r *RasDial) HangUp(ctx context.Context, name string) error {
	args := hangUpArgs(name)
	return r.launch(args, name+" "+common.HangUpFlag)
}

// launch starts the helper. The process is deliberately not tied to ctx:
// cancelling a wait must not kill a dial already handed to RAS.
func (r *RasDial) launch(args []string, printable string) error {
	path := ""
	if r.Path != nil {
		path = r.Path()
	}
	if path == "" {
		return fmt.Errorf("%w: %w", common.ErrHelperLaunch, common.ErrHelperNotFound)
	}

	cmd := exec.Command(path, args...)
	hideWindow(cmd)

	common.LogDebug("Launching %s %s", filepath.Base(path), printable)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrHelperLaunch, path, err)
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		if err != nil {
			common.LogDebug("Dial helper (pid %d) exited: %v", pid, err)
			return
		}
		common.LogDebug("Dial helper (pid %d) exited with status 0", pid)
	}()

	return nil
}

func dialArgs(name, username, password string) []string {
	return []string{name, username, password}
}

func hangUpArgs(name string) []string {
	return []string{name, common.HangUpFlag}
}

// DefaultHelperPath locates rasdial.exe in the system directory, falling
// back to a "rasdial" found on PATH. It returns "" when neither exists.
func DefaultHelperPath() string {
	if dir, err := systemDirectory(); err == nil && dir != "" {
		return filepath.Join(dir, common.DialHelperName)
	}
	if p, err := exec.LookPath("rasdial"); err == nil {
		return p
	}
	return ""
}
