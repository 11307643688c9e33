package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepContextWaitsForDuration(testInstance *testing.T) {
	startTime := time.Now()
	require.NoError(testInstance, SleepContext(context.Background(), 20*time.Millisecond))
	require.GreaterOrEqual(testInstance, time.Since(startTime), 20*time.Millisecond)
}

func TestSleepContextReturnsWhenCancelled(testInstance *testing.T) {
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	startTime := time.Now()
	sleepError := SleepContext(cancelledContext, time.Hour)
	require.ErrorIs(testInstance, sleepError, context.Canceled)
	require.Less(testInstance, time.Since(startTime), time.Second)

	require.ErrorIs(testInstance, SleepContext(cancelledContext, 0), context.Canceled)
	require.NoError(testInstance, SleepContext(context.Background(), 0))
}
