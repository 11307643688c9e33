// Package gpio polls and drives the router's digital and analog I/O through the vendor CLI.
//
// Polling prints analog and digital readings for a bounded number of loops, setting writes a
// digital output, and calibration manages the analog input calibration table.
package gpio
