//go:build windows

package vpn

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func systemDirectory() (string, error) {
	return windows.GetSystemDirectory()
}

// hideWindow keeps console helpers from flashing a window.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

func defaultProbeArgs() []string {
	return []string{"cmd.exe", "/C", "ipconfig"}
}
