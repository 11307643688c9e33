// Package cli constructs the digiscripts command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives shared by the router scripts.
package cli
