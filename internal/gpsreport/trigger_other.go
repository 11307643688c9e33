//go:build windows

package gpsreport

// NotifyReportRequests returns a channel that never fires on platforms without SIGUSR1.
func NotifyReportRequests() (<-chan struct{}, func()) {
	return nil, func() {}
}
