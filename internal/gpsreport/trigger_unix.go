//go:build !windows

package gpsreport

import (
	"os"
	"os/signal"
	"syscall"
)

// NotifyReportRequests returns a channel that receives a value whenever the process gets SIGUSR1.
func NotifyReportRequests() (<-chan struct{}, func()) {
	signals := make(chan os.Signal, 1)
	requests := make(chan struct{}, 1)
	done := make(chan struct{})
	signal.Notify(signals, syscall.SIGUSR1)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-signals:
				select {
				case requests <- struct{}{}:
				default:
				}
			}
		}
	}()

	return requests, func() {
		signal.Stop(signals)
		close(done)
	}
}
