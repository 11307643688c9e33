package gpsreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
)

const (
	gpsStatisticsCommandConstant   = `at\mibs=gps`
	startMessageTemplateConstant   = "Reporting GPS location to %s every %s\n"
	coordinatesLineTemplate        = "%s\n"
	readFailedTemplateConstant     = "read GPS statistics: %w"
	uploadFailedTemplateConstant   = "upload geolocation to %s: %w"
	consoleMissingMessageConstant  = "router console not configured"
	uploaderMissingMessageConstant = "datapoint uploader not configured"
	invalidIntervalMessageConstant = "report interval must be positive"
	reportedLogMessageConstant     = "Reported GPS location"
	reportFailedLogMessageConstant = "GPS report failed"
	triggeredLogMessageConstant    = "GPS report requested"
	logFieldLatitudeConstant       = "latitude"
	logFieldLongitudeConstant      = "longitude"
	logFieldSatellitesConstant     = "satellites"
	logFieldAltitudeConstant       = "altitude"
	logFieldStreamConstant         = "stream"
)

var (
	// ErrConsoleNotConfigured indicates the router console dependency is missing.
	ErrConsoleNotConfigured = errors.New(consoleMissingMessageConstant)
	// ErrUploaderNotConfigured indicates the datapoint uploader dependency is missing.
	ErrUploaderNotConfigured = errors.New(uploaderMissingMessageConstant)
	// ErrInvalidInterval indicates a non-positive report interval.
	ErrInvalidInterval = errors.New(invalidIntervalMessageConstant)
)

// TimerFunc returns a channel that fires once after the duration.
type TimerFunc func(time.Duration) <-chan time.Time

// Options configure the GPS reporter.
type Options struct {
	Interval time.Duration
	StreamID string
	Once     bool
}

// ServiceDependencies enumerates collaborators required by the GPS reporter.
type ServiceDependencies struct {
	Logger   *zap.Logger
	Console  routercli.Console
	Uploader alerts.DataPointUploader
	Output   io.Writer
	After    TimerFunc
}

// Service reads GPS fixes and uploads them as geolocation datapoints.
type Service struct {
	logger   *zap.Logger
	console  routercli.Console
	uploader alerts.DataPointUploader
	output   io.Writer
	after    TimerFunc
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Console == nil {
		return nil, ErrConsoleNotConfigured
	}
	if dependencies.Uploader == nil {
		return nil, ErrUploaderNotConfigured
	}

	service := &Service{
		logger:   dependencies.Logger,
		console:  dependencies.Console,
		uploader: dependencies.Uploader,
		output:   dependencies.Output,
		after:    dependencies.After,
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.output == nil {
		service.output = io.Discard
	}
	if service.after == nil {
		service.after = time.After
	}

	return service, nil
}

// Run reports the position every interval, and immediately whenever the trigger fires, until the context ends.
func (service *Service) Run(executionContext context.Context, options Options, trigger <-chan struct{}) error {
	if options.Interval <= 0 {
		return ErrInvalidInterval
	}

	fmt.Fprintf(service.output, startMessageTemplateConstant, options.StreamID, options.Interval)

	position, reportError := service.Report(executionContext, options.StreamID)
	if reportError == nil {
		fmt.Fprintf(service.output, coordinatesLineTemplate, position.Coordinates())
	}
	if options.Once {
		return reportError
	}

	for {
		if reportError != nil {
			service.logger.Warn(reportFailedLogMessageConstant, zap.Error(reportError))
		}

		select {
		case <-executionContext.Done():
			return nil
		case <-trigger:
			service.logger.Info(triggeredLogMessageConstant)
		case <-service.after(options.Interval):
		}

		_, reportError = service.Report(executionContext, options.StreamID)
	}
}

// Report reads one GPS fix and uploads it.
func (service *Service) Report(executionContext context.Context, streamID string) (Position, error) {
	response, readError := service.console.Execute(executionContext, gpsStatisticsCommandConstant)
	if readError != nil {
		return Position{}, fmt.Errorf(readFailedTemplateConstant, readError)
	}
	position, parseError := ParsePosition(response)
	if parseError != nil {
		return Position{}, fmt.Errorf(readFailedTemplateConstant, parseError)
	}

	dataPoint := remotemanager.DataPoint{Data: position.GeoJSONPoint(), StreamID: streamID}
	if uploadError := service.uploader.UploadDataPoints(executionContext, streamID, []remotemanager.DataPoint{dataPoint}); uploadError != nil {
		return position, fmt.Errorf(uploadFailedTemplateConstant, streamID, uploadError)
	}

	service.logger.Info(
		reportedLogMessageConstant,
		zap.String(logFieldStreamConstant, streamID),
		zap.Float64(logFieldLatitudeConstant, position.Latitude),
		zap.Float64(logFieldLongitudeConstant, position.Longitude),
		zap.String(logFieldSatellitesConstant, position.Satellites),
		zap.String(logFieldAltitudeConstant, position.Altitude),
	)

	return position, nil
}
