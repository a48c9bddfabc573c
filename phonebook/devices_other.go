//go:build !windows

package phonebook

// SystemDevices returns the stock WAN miniport list; hosts without RAS have
// nothing to enumerate.
func SystemDevices() DeviceLister {
	return StaticDevices(DefaultDevices)
}
