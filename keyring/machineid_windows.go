//go:build windows

package keyring

import "golang.org/x/sys/windows/registry"

func machineID() string {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Cryptography`,
		registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return "default-machine-id"
	}
	defer k.Close()

	id, _, err := k.GetStringValue("MachineGuid")
	if err != nil || id == "" {
		return "default-machine-id"
	}
	return id
}
