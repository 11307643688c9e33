// Package sshclient opens password-authenticated SSH sessions to routers and
// runs single CLI commands on them.
//
// Connection failures are classified into ErrConnectionTimedOut and
// ErrAuthenticationFailed so callers can log a reason and move on to the next
// device.
package sshclient
