// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and describes vendor router CLI commands in
// human-readable form so that every script reports what it asked the router to do.
package execshell
