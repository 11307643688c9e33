// Package voltage reads the router's analog input, converts it to the supply voltage behind a resistor divider, and reports both values to Remote Manager.
package voltage
