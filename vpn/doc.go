// Package vpn manages a single Windows VPN connection entry.
//
// A Connector binds one Profile (server, entry name, credentials and
// protocol) to the RAS phonebook and the rasdial helper:
//
//   - CreateOrUpdate writes the phonebook entry.
//   - TryConnect and TryDisconnect launch the helper and poll a Detector
//     until the link reaches the wanted state or the timeout runs out.
//   - TryDelete hangs up and removes the entry.
//
// The connector keeps no connection state. Every answer is derived from a
// probe, and polling runs on an injectable clock.
//
// The Monitor samples a Connector in the background and can reconnect it
// after the link drops.
package vpn
