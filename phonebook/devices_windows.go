//go:build windows

package phonebook

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modrasapi32         = windows.NewLazySystemDLL("rasapi32.dll")
	procRasEnumDevicesW = modrasapi32.NewProc("RasEnumDevicesW")
)

const (
	rasMaxDeviceType    = 16
	rasMaxDeviceName    = 128
	errorBufferTooSmall = 603
)

// rasDevInfo mirrors RASDEVINFOW.
type rasDevInfo struct {
	size       uint32
	deviceType [rasMaxDeviceType + 1]uint16
	deviceName [rasMaxDeviceName + 1]uint16
}

// RASDevices enumerates devices through RasEnumDevicesW.
type RASDevices struct{}

// SystemDevices returns the host's device enumeration.
func SystemDevices() DeviceLister {
	return RASDevices{}
}

// Devices lists every RAS-capable device, VPN miniports included.
func (RASDevices) Devices(ctx context.Context) ([]Device, error) {
	if err := procRasEnumDevicesW.Find(); err != nil {
		return nil, fmt.Errorf("failed to load RasEnumDevicesW: %w", err)
	}

	entrySize := uint32(unsafe.Sizeof(rasDevInfo{}))

	var size, count uint32
	r, _, _ := procRasEnumDevicesW.Call(0,
		uintptr(unsafe.Pointer(&size)),
		uintptr(unsafe.Pointer(&count)))
	if r != 0 && r != errorBufferTooSmall {
		return nil, fmt.Errorf("RasEnumDevicesW failed with code %d", r)
	}
	if count == 0 {
		return nil, nil
	}

	n := count
	if bySize := (size + entrySize - 1) / entrySize; bySize > n {
		n = bySize
	}
	infos := make([]rasDevInfo, n)
	infos[0].size = entrySize
	size = entrySize * n

	r, _, _ = procRasEnumDevicesW.Call(
		uintptr(unsafe.Pointer(&infos[0])),
		uintptr(unsafe.Pointer(&size)),
		uintptr(unsafe.Pointer(&count)))
	if r != 0 {
		return nil, fmt.Errorf("RasEnumDevicesW failed with code %d", r)
	}

	devices := make([]Device, 0, count)
	for _, info := range infos[:count] {
		devices = append(devices, Device{
			Name: windows.UTF16ToString(info.deviceName[:]),
			Type: windows.UTF16ToString(info.deviceType[:]),
		})
	}
	return devices, nil
}
