// Package simwatch detects SIM card swaps by comparing the active ICCID with the one recorded on the previous run.
package simwatch
