//go:build !windows

package vpn

import (
	"errors"
	"os/exec"
)

var errNoSystemDirectory = errors.New("no system directory on this platform")

func systemDirectory() (string, error) {
	return "", errNoSystemDirectory
}

func hideWindow(cmd *exec.Cmd) {}

func defaultProbeArgs() []string {
	return []string{"ip", "-4", "addr", "show"}
}
