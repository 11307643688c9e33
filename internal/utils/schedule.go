package utils

import (
	"context"
	"time"
)

// SleepContext waits for the duration or until the context is done, returning the context error in that case.
func SleepContext(sleepContext context.Context, duration time.Duration) error {
	if duration <= 0 {
		return sleepContext.Err()
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-sleepContext.Done():
		return sleepContext.Err()
	case <-timer.C:
		return nil
	}
}
