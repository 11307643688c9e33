package gpsreport

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/remotemanager"
)

type stubConsole struct {
	response string
	failure  error
	commands []string
}

func (console *stubConsole) Execute(_ context.Context, command string) (string, error) {
	console.commands = append(console.commands, command)
	return console.response, console.failure
}

type cancellingUploader struct {
	streamPaths []string
	points      []remotemanager.DataPoint
	cancelAfter int
	cancel      context.CancelFunc
}

func (uploader *cancellingUploader) UploadDataPoints(_ context.Context, streamPath string, dataPoints []remotemanager.DataPoint) error {
	uploader.streamPaths = append(uploader.streamPaths, streamPath)
	uploader.points = append(uploader.points, dataPoints...)
	if uploader.cancel != nil && len(uploader.streamPaths) >= uploader.cancelAfter {
		uploader.cancel()
	}
	return nil
}

type scriptedTimer struct {
	durations []time.Duration
	fireCount int
}

func (timer *scriptedTimer) After(duration time.Duration) <-chan time.Time {
	timer.durations = append(timer.durations, duration)
	if len(timer.durations) > timer.fireCount {
		return nil
	}
	fired := make(chan time.Time, 1)
	fired <- time.Time{}
	return fired
}

func TestServiceReportUploadsGeoJSONPoint(testInstance *testing.T) {
	console := &stubConsole{response: testGPSStatisticsConstant}
	uploader := &cancellingUploader{}
	output := &bytes.Buffer{}

	service, serviceError := NewService(ServiceDependencies{Logger: zap.NewNop(), Console: console, Uploader: uploader, Output: output})
	require.NoError(testInstance, serviceError)

	require.NoError(testInstance, service.Run(context.Background(), Options{Interval: time.Minute, StreamID: DefaultStreamID, Once: true}, nil))
	require.Equal(testInstance, []string{`at\mibs=gps`}, console.commands)
	require.Equal(testInstance, []string{DefaultStreamID}, uploader.streamPaths)
	require.Equal(testInstance, []remotemanager.DataPoint{{
		Data:     `{"type": "Point", "coordinates": [44.9778, 93.265]}`,
		StreamID: DefaultStreamID,
	}}, uploader.points)
	require.Equal(testInstance, "Reporting GPS location to geolocation every 1m0s\n[44.9778, 93.265]\n", output.String())
}

func TestServiceRunReportsOnInterval(testInstance *testing.T) {
	runContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	uploader := &cancellingUploader{cancelAfter: 2, cancel: cancel}
	timer := &scriptedTimer{fireCount: 1}
	service, serviceError := NewService(ServiceDependencies{
		Console:  &stubConsole{response: testGPSStatisticsConstant},
		Uploader: uploader,
		After:    timer.After,
	})
	require.NoError(testInstance, serviceError)

	require.NoError(testInstance, service.Run(runContext, Options{Interval: 180 * time.Second, StreamID: DefaultStreamID}, nil))
	require.Len(testInstance, uploader.points, 2)
	require.Equal(testInstance, []time.Duration{180 * time.Second, 180 * time.Second}, timer.durations)
}

func TestServiceRunReportsOnTrigger(testInstance *testing.T) {
	runContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	trigger := make(chan struct{}, 2)
	trigger <- struct{}{}
	trigger <- struct{}{}

	uploader := &cancellingUploader{cancelAfter: 3, cancel: cancel}
	timer := &scriptedTimer{fireCount: 0}
	service, serviceError := NewService(ServiceDependencies{
		Console:  &stubConsole{response: testGPSStatisticsConstant},
		Uploader: uploader,
		After:    timer.After,
	})
	require.NoError(testInstance, serviceError)

	require.NoError(testInstance, service.Run(runContext, Options{Interval: time.Hour, StreamID: DefaultStreamID}, trigger))
	require.Len(testInstance, uploader.points, 3)
}

func TestServiceRunOnceReportsFailures(testInstance *testing.T) {
	service, serviceError := NewService(ServiceDependencies{
		Console:  &stubConsole{failure: errors.New("modem busy")},
		Uploader: &cancellingUploader{},
	})
	require.NoError(testInstance, serviceError)

	runError := service.Run(context.Background(), Options{Interval: time.Minute, StreamID: DefaultStreamID, Once: true}, nil)
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "read GPS statistics: modem busy")

	require.ErrorIs(testInstance, service.Run(context.Background(), Options{}, nil), ErrInvalidInterval)
}
