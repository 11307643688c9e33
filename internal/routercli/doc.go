// Package routercli talks to the vendor command-line interface of Digi routers.
//
// A Console executes one CLI command and returns the raw response text. The
// LocalConsole runs the on-device CLI binary; the SSHConsole opens a session to
// a remote router per call. The parse functions extract the fixed patterns the
// operational scripts rely on from those responses.
package routercli
