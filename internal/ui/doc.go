// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate router command events into concise messages so that
// operators see what each script asked the router to do while detailed
// telemetry continues to flow through structured loggers.
package ui
