// Package remotemanager is a small client for the Digi Remote Manager web services API.
//
// It uploads telemetry datapoints as XML and pages through the DeviceCore
// inventory for exports.
package remotemanager
