// Package reboot implements the scheduled router reboot timer, optionally capturing a tech support report before each reboot.
package reboot
