// Package provision enables the Remote Manager client on a fleet of routers over SSH.
//
// Devices come from a single address, a plain IP list, or a YAML/TOML inventory with per-device
// credentials. Each device is configured in file order; timeouts and authentication failures are
// logged and the run continues with the next device. Device IDs derived from the reported MAC
// addresses are written to a headerless CSV suitable for the Remote Manager bulk add feature.
package provision
