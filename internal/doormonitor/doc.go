// Package doormonitor watches the enclosure door switch wired to the router's digital inputs and raises alerts when the door state changes.
package doormonitor
