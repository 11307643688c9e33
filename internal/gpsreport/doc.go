// Package gpsreport uploads the router's GPS position to Remote Manager as a GeoJSON point datapoint.
//
// Reports run on a fixed interval and can also be requested on demand through a trigger channel.
package gpsreport
